package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a hand-cranked Clock. Tests move time with Advance and
// prompt pollers with fire; ticker delivery is unbuffered, so firing
// twice guarantees the first prompt was fully handled.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	created chan struct{}
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, created: make(chan struct{}, 8)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	tk := &fakeTicker{fire: make(chan time.Time)}
	c.mu.Lock()
	c.tickers = append(c.tickers, tk)
	c.mu.Unlock()
	select {
	case c.created <- struct{}{}:
	default:
	}
	return tk
}

// waitForTicker blocks until the component under test has created its
// poll ticker, so the first fire cannot be lost.
func (c *fakeClock) waitForTicker(t *testing.T) {
	t.Helper()
	select {
	case <-c.created:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a ticker to be created")
	}
}

func (c *fakeClock) fire(t *testing.T) {
	t.Helper()
	c.mu.Lock()
	now := c.now
	tickers := append([]*fakeTicker(nil), c.tickers...)
	c.mu.Unlock()
	for _, tk := range tickers {
		tk.deliver(t, now)
	}
}

// step advances the clock and prompts one poll, like one real ticker
// beat of length d.
func (c *fakeClock) step(t *testing.T, d time.Duration) {
	t.Helper()
	c.Advance(d)
	c.fire(t)
}

type fakeTicker struct {
	mu      sync.Mutex
	stopped bool
	fire    chan time.Time
}

func (tk *fakeTicker) C() <-chan time.Time { return tk.fire }

func (tk *fakeTicker) Stop() {
	tk.mu.Lock()
	tk.stopped = true
	tk.mu.Unlock()
}

func (tk *fakeTicker) deliver(t *testing.T, now time.Time) {
	t.Helper()
	tk.mu.Lock()
	stopped := tk.stopped
	tk.mu.Unlock()
	if stopped {
		return
	}
	select {
	case tk.fire <- now:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker prompt was not consumed")
	}
}

func TestSystemClock(t *testing.T) {
	clock := SystemClock{}

	before := time.Now()
	now := clock.Now()
	assert.False(t, now.Before(before))

	ticker := clock.NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("system ticker never fired")
	}
}
