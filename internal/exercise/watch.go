package exercise

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"breathtrainer/internal/events"
	"breathtrainer/internal/safego"
)

// Debounce editor write bursts before reloading
const reloadDebounce = 500 * time.Millisecond

// Watcher watches a directory of custom definition files and republishes
// the loaded definitions whenever the directory changes.
type Watcher struct {
	dir          string
	logger       *log.Logger
	fsw          *fsnotify.Watcher
	defsEvent    *events.Stream[[]Definition]
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewWatcher creates a watcher for the given custom exercise directory.
// Call Start to begin watching.
func NewWatcher(dir string, logger *log.Logger) *Watcher {
	if logger == nil {
		panic("Watcher: logger cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:       dir,
		logger:    logger,
		defsEvent: events.NewStream[[]Definition](true),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start loads the directory once, publishes the result, and begins
// watching for changes.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create custom exercise dir: %w", err)
	}

	w.reload()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch custom exercise dir: %w", err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	safego.Go(w.logger, func() { w.watchLoop() })

	w.logger.Printf("Watcher: watching %s for custom exercises", w.dir)
	return nil
}

// ListenToDefinitions registers a channel to receive the custom definition
// list. The current list is delivered immediately.
// Returns a deregistration function.
func (w *Watcher) ListenToDefinitions(ch chan<- []Definition) func() {
	return w.defsEvent.Subscribe(ch)
}

// Shutdown stops the watcher goroutine. Safe to call multiple times.
func (w *Watcher) Shutdown() {
	w.shutdownOnce.Do(func() {
		w.cancel()
		if w.fsw != nil {
			_ = w.fsw.Close()
		}
		w.wg.Wait()
		w.logger.Printf("Watcher: shutdown complete")
	})
}

// reload reads the directory and publishes whatever loaded, logging any
// files that were skipped
func (w *Watcher) reload() {
	defs, err := LoadDir(w.dir)
	if err != nil {
		w.logger.Printf("Watcher: some custom exercises were skipped: %v", err)
	}
	w.logger.Printf("Watcher: loaded %d custom exercises", len(defs))
	w.defsEvent.Publish(defs)
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	var debounce *time.Timer

	for {
		select {
		case <-w.ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				// Editors fire several events per save; collapse them
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, w.reload)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("Watcher: watch error: %v", err)
		}
	}
}
