package audio

import (
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breathtrainer/internal/exercise"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// syncWriter counts bell bytes across goroutines.
type syncWriter struct {
	mu    sync.Mutex
	bells int
}

func (w *syncWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bells += len(b)
	return len(b), nil
}

func (w *syncWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bells
}

// gateWriter blocks every Write until released, so tests can pin the
// worker mid-cue while more cues queue up.
type gateWriter struct {
	mu        sync.Mutex
	releaseCh chan struct{}
	attempts  int
	bells     int
}

func newGateWriter() *gateWriter {
	return &gateWriter{releaseCh: make(chan struct{})}
}

func (w *gateWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	w.attempts++
	ch := w.releaseCh
	w.mu.Unlock()
	<-ch
	w.mu.Lock()
	w.bells += len(b)
	w.mu.Unlock()
	return len(b), nil
}

func (w *gateWriter) release() {
	close(w.releaseCh)
}

func (w *gateWriter) writeAttempts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attempts
}

func (w *gateWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bells
}

func TestBellPlayerPlaysPatternPerKind(t *testing.T) {
	w := &syncWriter{}
	p := NewBellPlayer(w, discardLogger(), time.Millisecond)
	defer p.Shutdown()

	p.PhaseStarted(exercise.KindHoldFull, 5*time.Second)

	require.Eventually(t, func() bool { return w.count() == 3 },
		time.Second, 5*time.Millisecond)
}

func TestBellPlayerSessionEnded(t *testing.T) {
	w := &syncWriter{}
	p := NewBellPlayer(w, discardLogger(), time.Millisecond)
	defer p.Shutdown()

	p.SessionEnded()

	require.Eventually(t, func() bool { return w.count() == sessionEndPulses },
		time.Second, 5*time.Millisecond)
}

func TestBellPlayerResyncDropsQueuedCues(t *testing.T) {
	w := newGateWriter()
	p := NewBellPlayer(w, discardLogger(), time.Millisecond)

	// First cue: the worker dequeues it and blocks inside Write.
	p.PhaseStarted(exercise.KindInhale, 4*time.Second)
	require.Eventually(t, func() bool { return w.writeAttempts() == 1 },
		time.Second, time.Millisecond)

	// These stack up behind the blocked worker.
	p.PhaseStarted(exercise.KindExhale, 4*time.Second)
	p.SessionEnded()

	p.Resync()
	w.release()

	// Only the in-flight single-pulse cue survives.
	require.Eventually(t, func() bool { return w.count() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, w.count())

	p.Shutdown()
}

func TestBellPlayerShutdownIdempotent(t *testing.T) {
	p := NewBellPlayer(&syncWriter{}, discardLogger(), time.Millisecond)
	p.Shutdown()
	p.Shutdown()
}

func TestBellPlayerNilArgsPanic(t *testing.T) {
	assert.Panics(t, func() { NewBellPlayer(nil, discardLogger()) })
	assert.Panics(t, func() { NewBellPlayer(&syncWriter{}, nil) })
}

func TestNullPlayerIsInert(t *testing.T) {
	var p CuePlayer = NullPlayer{}
	p.PhaseStarted(exercise.KindInhale, time.Second)
	p.SessionEnded()
	p.Resync()
	p.Shutdown()
}
