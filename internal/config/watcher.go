package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ApplyFunc receives the freshly loaded configuration when the config file
// changes on disk. Apply funcs adjust the dynamic subset (session limits,
// code length cap, log level); listener addresses and credentials stay fixed
// until restart.
type ApplyFunc func(*Config)

// Watcher reloads the configuration file when it is rewritten. Editors and
// config-map mounts produce bursts of events, so reloads are debounced.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	path    string
	logger  *zap.Logger
	applies []ApplyFunc

	debounce time.Duration
	pending  bool
	lastEvt  time.Time

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		path:     path,
		logger:   logger,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// OnReload registers fn to run after every successful reload.
func (w *Watcher) OnReload(fn ApplyFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.applies = append(w.applies, fn)
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
// Watching the parent directory rather than the file survives the
// rename-and-replace dance most editors and config mounts do.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.logger.Info("watching config for changes", zap.String("path", w.path))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("failed to close config watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", zap.Error(err))

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.mu.Lock()
	w.pending = true
	w.lastEvt = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	if !w.pending || time.Since(w.lastEvt) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = false
	applies := make([]ApplyFunc, len(w.applies))
	copy(applies, w.applies)
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", zap.Error(err))
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Warn("reloaded config invalid, keeping previous", zap.Error(err))
		return
	}

	for _, fn := range applies {
		fn(cfg)
	}
	w.logger.Info("config reloaded",
		zap.Int("max_sessions", cfg.Sessions.MaxSessions),
		zap.String("idle_timeout", cfg.Sessions.IdleTimeout),
		zap.String("log_level", cfg.Logging.Level))
}
