package persona

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Loader serves a persona prompt read from a file and reloads it when the
// file changes.
type Loader struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	prompt string
}

var _ Source = (*Loader)(nil)

// NewLoader reads path once. The file must exist and be non-empty.
func NewLoader(path string, logger *slog.Logger) (*Loader, error) {
	l := &Loader{path: filepath.Clean(path), logger: logger}
	if err := l.reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Prompt implements Source.
func (l *Loader) Prompt() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.prompt
}

func (l *Loader) reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("reading persona file: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return fmt.Errorf("persona file %s is empty", l.path)
	}

	l.mu.Lock()
	l.prompt = prompt
	l.mu.Unlock()
	return nil
}

// Watch reloads the prompt on every write to the file until ctx is done.
// A failed reload keeps the previous prompt. The ready channel, if non-nil,
// is closed once the watcher is registered.
func (l *Loader) Watch(ctx context.Context, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating persona watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("watching persona dir: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != l.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := l.reload(); err != nil {
				l.logger.Warn("keeping previous persona", "path", l.path, "error", err)
				continue
			}
			l.logger.Info("persona reloaded", "path", l.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("persona watcher error: %w", err)
		}
	}
}
