package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/walletgate/internal/logging"
)

// PolicyHandler is invoked with the freshly parsed policy set whenever the
// watched file changes.
type PolicyHandler func(policies map[string]Policy)

// PolicyWatcher hot-reloads an admission policy file. A file that fails to
// parse is ignored and the previous policies stay in effect.
type PolicyWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	handlers []PolicyHandler
	logger   logging.Logger
	mu       sync.Mutex
	stopped  bool
}

// NewPolicyWatcher creates a watcher for the given policy file.
func NewPolicyWatcher(path string, logger logging.Logger) (*PolicyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	// Watch the directory rather than the file: editors replace files on
	// save, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()

		return nil, err
	}

	return &PolicyWatcher{
		path:    path,
		watcher: watcher,
		logger:  logger.WithComponent("policywatcher"),
	}, nil
}

// OnChange registers a handler for policy reloads.
func (w *PolicyWatcher) OnChange(handler PolicyHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start watches until ctx is done or Stop is called.
func (w *PolicyWatcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *PolicyWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "Policy watcher error")
		}
	}
}

func (w *PolicyWatcher) reload(ctx context.Context) {
	policies, err := LoadPolicyFile(w.path)
	if err != nil {
		w.logger.Warn(ctx, err, "Policy file reload failed; keeping previous policies",
			"path", w.path)

		return
	}

	w.mu.Lock()
	handlers := make([]PolicyHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	w.logger.Info(ctx, "Policies reloaded", "path", w.path, "count", len(policies))
	for _, handler := range handlers {
		handler(policies)
	}
}

// Stop closes the watcher. Safe to call once.
func (w *PolicyWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	return w.watcher.Close()
}

// LoadPolicyFile parses a YAML policy file into named policies.
func LoadPolicyFile(path string) (map[string]Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var policies map[string]Policy
	if err := yaml.Unmarshal(data, &policies); err != nil {
		return nil, err
	}

	return policies, nil
}
