// Package source supplies cluster snapshots from a file, an HTTP endpoint
// or a live cluster.
package source

import (
	"context"
	"fmt"

	"kube-topology/internal/config"
	"kube-topology/internal/resource"

	"github.com/sirupsen/logrus"
)

// Source produces snapshots on demand.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	Snapshot(ctx context.Context) (*resource.Snapshot, error)
}

// Watcher is implemented by sources that can report changes without being
// polled. Watch returns once watching has started; onChange is called from
// another goroutine until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// New builds the source described by cfg.
func New(cfg config.SourceConfig, log *logrus.Entry) (Source, error) {
	switch cfg.Type {
	case "file":
		return NewFileSource(cfg.Path, log), nil
	case "http":
		return NewHTTPSource(cfg.URL, nil, log), nil
	case "kube":
		return NewKubeSourceFromConfig(cfg.Kubeconfig, cfg.Namespace, log)
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}
