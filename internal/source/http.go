package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"kube-topology/internal/logger"
	"kube-topology/internal/parser"
	"kube-topology/internal/resource"

	"github.com/sirupsen/logrus"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxSnapshotBytes   = 64 << 20
)

// HTTPSource fetches snapshots from a topology-data endpoint.
type HTTPSource struct {
	url    string
	client *http.Client
	log    *logrus.Entry
}

// NewHTTPSource creates a source fetching url. A nil client uses one with a
// 30 second timeout.
func NewHTTPSource(url string, client *http.Client, log *logrus.Entry) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPSource{
		url:    url,
		client: client,
		log:    logger.OrDiscard(log).WithField("source", "http"),
	}
}

// Name implements Source.
func (s *HTTPSource) Name() string {
	return "http:" + s.url
}

// Snapshot fetches and parses the document served at the source URL.
func (s *HTTPSource) Snapshot(ctx context.Context) (*resource.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch snapshot: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	s.log.WithField("bytes", len(data)).Debug("fetched snapshot")
	return parser.ParseSnapshot(data, s.log)
}
