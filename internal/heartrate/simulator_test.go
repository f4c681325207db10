package heartrate

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSimulatorPublishesPlausibleReadings(t *testing.T) {
	s := NewSimulator(discardLogger(), 2*time.Millisecond)
	defer s.Shutdown()

	ch := make(chan int, 64)
	cancel := s.ListenToReadings(ch)
	defer cancel()

	var readings []int
	require.Eventually(t, func() bool {
		for {
			select {
			case bpm := <-ch:
				readings = append(readings, bpm)
			default:
				return len(readings) >= 5
			}
		}
	}, time.Second, 5*time.Millisecond)

	for _, bpm := range readings {
		assert.GreaterOrEqual(t, bpm, simulatorBaseBPM-15)
		assert.LessOrEqual(t, bpm, simulatorBaseBPM+15)
	}
}

func TestSimulatorReplaysLastReadingToLateSubscriber(t *testing.T) {
	s := NewSimulator(discardLogger(), 2*time.Millisecond)
	defer s.Shutdown()

	early := make(chan int, 1)
	cancelEarly := s.ListenToReadings(early)
	select {
	case <-early:
	case <-time.After(time.Second):
		t.Fatal("no reading published")
	}
	cancelEarly()

	late := make(chan int, 1)
	cancelLate := s.ListenToReadings(late)
	defer cancelLate()
	select {
	case bpm := <-late:
		assert.Greater(t, bpm, 0)
	case <-time.After(time.Second):
		t.Fatal("last reading was not replayed")
	}
}

func TestSimulatorShutdownIdempotent(t *testing.T) {
	s := NewSimulator(discardLogger(), 2*time.Millisecond)
	s.Shutdown()
	s.Shutdown()
}

func TestSimulatorNilLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { NewSimulator(nil) })
}

func TestNullSourceIsInert(t *testing.T) {
	var src Source = NullSource{}
	ch := make(chan int, 1)
	cancel := src.ListenToReadings(ch)
	cancel()
	src.Resync()
	src.Shutdown()
	assert.Empty(t, ch)
}
