package parser

import (
	"bytes"
	"encoding/json"
	"fmt"

	"kube-topology/internal/builder"
	"kube-topology/internal/logger"
	"kube-topology/internal/resource"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

const listKind = "List"

type header struct {
	Kind string `json:"kind"`
}

type objectList struct {
	Items []map[string]any `json:"items"`
}

// ParseSnapshot decodes a JSON or YAML snapshot document. A document of
// kind List holds raw cluster objects and is passed through relation
// derivation; anything else is read as {items, relations}.
//
// JSON keeps the key order of an object-form items map. YAML is converted
// to JSON first, which orders those keys alphabetically.
func ParseSnapshot(data []byte, log *logrus.Entry) (*resource.Snapshot, error) {
	log = logger.OrDiscard(log)

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("empty snapshot document: %w", resource.ErrInvalidInput)
	}

	if data[0] != '{' {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to convert yaml snapshot: %w", err)
		}
		data = bytes.TrimSpace(converted)
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return nil, fmt.Errorf("empty snapshot document: %w", resource.ErrInvalidInput)
		}
	}

	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if h.Kind == listKind {
		return parseList(data, log)
	}

	var snap resource.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	snap.Normalize()

	if skipped := snap.Items.Skipped(); skipped > 0 {
		log.WithField("skipped", skipped).Debug("dropped items without an id")
	}
	for _, item := range snap.Items.All() {
		item.Kind = item.Kind.Normalize()
	}

	return &snap, nil
}

func parseList(data []byte, log *logrus.Entry) (*resource.Snapshot, error) {
	var list objectList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal object list: %w", err)
	}

	objs := make([]unstructured.Unstructured, 0, len(list.Items))
	for _, obj := range list.Items {
		if obj == nil {
			continue
		}
		objs = append(objs, unstructured.Unstructured{Object: obj})
	}

	typed, err := builder.FromUnstructured(objs, log)
	if err != nil {
		return nil, err
	}
	log.WithField("objects", typed.Len()).Debug("deriving relations from object list")

	return builder.Build(typed, log).Normalize(), nil
}
