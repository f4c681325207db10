package engine

import (
	"log"
	"sync"
	"time"

	"breathtrainer/internal/events"
	"breathtrainer/internal/safego"
)

// Defaults for SuspendWatcher tuning.
const (
	DefaultSuspendCheckInterval = 1 * time.Second
	DefaultSuspendThreshold     = 5 * time.Second
)

// SuspendWatcher notices large gaps between successive wall-clock
// readings, which on a desktop almost always means the host slept.
// Sessions recompute elapsed from the clock and survive the gap on
// their own; the watcher exists so UI and audio layers can resync
// instead of animating a catch-up. Each detected gap is published as
// the full wall-clock distance between the two readings.
type SuspendWatcher struct {
	clock     Clock
	logger    *log.Logger
	interval  time.Duration
	threshold time.Duration

	gapEvent *events.Stream[time.Duration]

	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewSuspendWatcher creates a watcher and starts its check loop. A nil
// clock means SystemClock; threshold <= 0 takes the default.
func NewSuspendWatcher(clock Clock, threshold time.Duration, logger *log.Logger) *SuspendWatcher {
	if logger == nil {
		panic("SuspendWatcher: logger cannot be nil")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if threshold <= 0 {
		threshold = DefaultSuspendThreshold
	}
	w := &SuspendWatcher{
		clock:     clock,
		logger:    logger,
		interval:  DefaultSuspendCheckInterval,
		threshold: threshold,
		gapEvent:  events.NewStream[time.Duration](false),
		doneChan:  make(chan struct{}),
	}
	w.wg.Add(1)
	safego.Go(logger, func() {
		defer w.wg.Done()
		w.watchLoop()
	})
	return w
}

// ListenToGaps subscribes ch to detected gaps. The returned function
// cancels the subscription.
func (w *SuspendWatcher) ListenToGaps(ch chan<- time.Duration) func() {
	return w.gapEvent.Subscribe(ch)
}

func (w *SuspendWatcher) watchLoop() {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.clock.Now()
	for {
		select {
		case <-w.doneChan:
			return
		case <-ticker.C():
			now := w.clock.Now()
			gap := now.Sub(last)
			last = now
			if gap > w.threshold {
				w.logger.Printf("SuspendWatcher: clock jumped %v, resync advised", gap)
				w.gapEvent.Publish(gap)
			}
		}
	}
}

// Shutdown stops the check loop and waits for it to exit.
func (w *SuspendWatcher) Shutdown() {
	w.shutdownOnce.Do(func() {
		close(w.doneChan)
		w.wg.Wait()
	})
}
