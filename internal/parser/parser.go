package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kube-topology/internal/resource"

	"github.com/sirupsen/logrus"
)

// Format names an encoding a snapshot can be read from.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatDOT  Format = "dot"
)

// ErrUnsupportedFormat is returned for encodings the parser cannot read.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat maps a user supplied format name onto a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "dot", "gv":
		return FormatDOT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// DetectFormat picks the format from a file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Parse decodes data in the given format into a snapshot.
func Parse(data []byte, format Format, log *logrus.Entry) (*resource.Snapshot, error) {
	switch format {
	case FormatJSON, FormatYAML:
		return ParseSnapshot(data, log)
	case FormatDOT:
		return ParseDOT(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ParseFile reads path and decodes it according to its extension.
func ParseFile(path string, log *logrus.Entry) (*resource.Snapshot, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	return Parse(data, format, log)
}
