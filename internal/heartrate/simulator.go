package heartrate

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"breathtrainer/internal/events"
	"breathtrainer/internal/safego"
)

const (
	simulatorBaseBPM  = 72
	simulatorInterval = time.Second
)

// Simulator publishes synthetic readings so the app can be exercised
// without a strap. Each reading is encoded as a measurement
// characteristic value and run through the same parser as real
// notifications.
type Simulator struct {
	logger   *log.Logger
	interval time.Duration
	readings *events.Stream[int]

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewSimulator creates and starts a Simulator. An optional interval
// overrides the one-second notification cadence.
func NewSimulator(logger *log.Logger, interval ...time.Duration) *Simulator {
	if logger == nil {
		panic("HeartRate: logger cannot be nil")
	}
	tick := simulatorInterval
	if len(interval) > 0 {
		tick = interval[0]
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Simulator{
		logger:   logger,
		interval: tick,
		readings: events.NewStream[int](true),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.wg.Add(1)
	safego.Go(logger, func() {
		defer s.wg.Done()
		s.notifyLoop()
	})

	logger.Printf("HeartRate: simulator started (base %d bpm)", simulatorBaseBPM)
	return s
}

// ListenToReadings registers a channel for bpm readings. The last
// reading is replayed to late subscribers.
func (s *Simulator) ListenToReadings(ch chan<- int) func() {
	return s.readings.Subscribe(ch)
}

// Resync is a no-op; synthetic readings have no link to lose.
func (s *Simulator) Resync() {}

// Shutdown stops the simulator. Safe to call multiple times.
func (s *Simulator) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.logger.Printf("HeartRate: simulator shutdown complete")
	})
}

func (s *Simulator) notifyLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	bpm := simulatorBaseBPM
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			bpm += rand.IntN(5) - 2
			if bpm < simulatorBaseBPM-15 {
				bpm = simulatorBaseBPM - 15
			}
			if bpm > simulatorBaseBPM+15 {
				bpm = simulatorBaseBPM + 15
			}

			// Same wire shape a strap sends: flags byte, uint8 bpm.
			buf := []byte{0x00, byte(bpm)}
			parsed, err := parseHeartRate(buf)
			if err != nil {
				s.logger.Printf("HeartRate: simulator parse error: %v", err)
				continue
			}
			s.readings.Publish(parsed)
		}
	}
}
