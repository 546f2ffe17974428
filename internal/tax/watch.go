package tax

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"schoolcompare/internal/log"
)

// Watcher reloads an override table file into an Estimator when it changes.
// A reload that fails validation keeps the previous table.
type Watcher struct {
	est      *Estimator
	path     string
	logger   *log.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	started  atomic.Bool
	reloads  atomic.Int64
	failures atomic.Int64
}

// NewWatcher prepares a watcher for path. Nothing runs until Start.
func NewWatcher(est *Estimator, path string, logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		est:      est,
		path:     filepath.Clean(path),
		logger:   logger.WithComponent(log.ComponentTax),
		watcher:  fw,
		debounce: 200 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Reload reads the file and swaps the estimator's table.
func (w *Watcher) Reload() error {
	t, err := LoadTableFile(w.path)
	if err != nil {
		w.failures.Add(1)
		return err
	}
	w.est.Replace(t)
	w.reloads.Add(1)
	return nil
}

// Start watches the file's directory so editors that replace the file on
// save are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.Info("Watching tax table", "path", w.path)
	w.started.Store(true)
	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and releases the inotify handle.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.started.Load() {
			<-w.doneCh
		}
		_ = w.watcher.Close()
	})
}

// Reloads returns how many reloads succeeded and failed.
func (w *Watcher) Reloads() (ok, failed int64) {
	return w.reloads.Load(), w.failures.Load()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Tax table watch error", log.FieldError, err)
		case <-pending:
			pending = nil
			if err := w.Reload(); err != nil {
				w.logger.Error("Tax table reload failed, keeping previous table",
					log.FieldError, err, "path", w.path)
				continue
			}
			w.logger.Info("Tax table reloaded", "path", w.path)
		}
	}
}
