package source

import (
	"context"
	"fmt"
	"path/filepath"

	"kube-topology/internal/logger"
	"kube-topology/internal/parser"
	"kube-topology/internal/resource"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FileSource reads snapshots from a JSON, YAML or DOT file.
type FileSource struct {
	path string
	log  *logrus.Entry
}

// NewFileSource creates a source reading path.
func NewFileSource(path string, log *logrus.Entry) *FileSource {
	return &FileSource{
		path: path,
		log:  logger.OrDiscard(log).WithField("source", "file"),
	}
}

// Name implements Source.
func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Snapshot parses the file.
func (s *FileSource) Snapshot(context.Context) (*resource.Snapshot, error) {
	return parser.ParseFile(s.path, s.log)
}

// Watch calls onChange whenever the file is written, created or replaced.
// The directory is watched rather than the file so editors that save by
// renaming are seen too.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", s.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	log := s.log.WithField("path", abs)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					log.WithField("op", event.Op.String()).Debug("snapshot file changed")
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("watching snapshot file")
			}
		}
	}()

	return nil
}
