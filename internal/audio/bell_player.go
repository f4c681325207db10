package audio

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"breathtrainer/internal/exercise"
	"breathtrainer/internal/safego"
)

const defaultPulseGap = 120 * time.Millisecond

// bellPulses maps a phase kind to its bell count, so phases stay
// distinguishable without looking at the screen.
var bellPulses = map[exercise.PhaseKind]int{
	exercise.KindInhale:    1,
	exercise.KindExhale:    2,
	exercise.KindHoldFull:  3,
	exercise.KindHoldEmpty: 3,
	exercise.KindRest:      1,
	exercise.KindWork:      2,
	exercise.KindGuided:    1,
	exercise.KindOpenEnded: 3,
}

const sessionEndPulses = 4

// BellPlayer cues phases with terminal bell pulses. Cues queue onto a
// worker goroutine so callers never wait for the pulse spacing.
type BellPlayer struct {
	writer   io.Writer
	logger   *log.Logger
	pulseGap time.Duration

	cueChan chan int

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewBellPlayer creates a BellPlayer writing bell bytes to w. An
// optional pulse gap overrides the default spacing.
func NewBellPlayer(w io.Writer, logger *log.Logger, pulseGap ...time.Duration) *BellPlayer {
	if w == nil {
		panic("BellPlayer: writer cannot be nil")
	}
	if logger == nil {
		panic("BellPlayer: logger cannot be nil")
	}
	gap := defaultPulseGap
	if len(pulseGap) > 0 {
		gap = pulseGap[0]
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &BellPlayer{
		writer:   w,
		logger:   logger,
		pulseGap: gap,
		cueChan:  make(chan int, 8),
		ctx:      ctx,
		cancel:   cancel,
	}

	p.wg.Add(1)
	safego.Go(logger, func() {
		defer p.wg.Done()
		p.playLoop()
	})

	return p
}

// PhaseStarted queues the bell pattern for the phase kind. The duration
// is not used by this backend.
func (p *BellPlayer) PhaseStarted(kind exercise.PhaseKind, _ time.Duration) {
	pulses, ok := bellPulses[kind]
	if !ok {
		pulses = 1
	}
	p.enqueue(pulses)
}

// SessionEnded queues the end-of-session pattern.
func (p *BellPlayer) SessionEnded() {
	p.enqueue(sessionEndPulses)
}

// Resync drops queued cues. Called after a host suspend so the backlog
// of missed phases does not ring all at once.
func (p *BellPlayer) Resync() {
	dropped := 0
	for {
		select {
		case <-p.cueChan:
			dropped++
		default:
			if dropped > 0 {
				p.logger.Printf("BellPlayer: dropped %d stale cues on resync", dropped)
			}
			return
		}
	}
}

// Shutdown stops the worker goroutine. Safe to call multiple times.
func (p *BellPlayer) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.logger.Printf("BellPlayer: shutdown complete")
	})
}

func (p *BellPlayer) enqueue(pulses int) {
	select {
	case p.cueChan <- pulses:
	default:
		p.logger.Printf("BellPlayer: cue queue full, dropping cue")
	}
}

func (p *BellPlayer) playLoop() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case pulses := <-p.cueChan:
			p.play(pulses)
		}
	}
}

func (p *BellPlayer) play(pulses int) {
	for i := 0; i < pulses; i++ {
		if i > 0 {
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.pulseGap):
			}
		}
		if _, err := p.writer.Write([]byte{'\a'}); err != nil {
			p.logger.Printf("BellPlayer: write failed: %v", err)
			return
		}
	}
}
