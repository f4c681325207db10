package engine

import (
	"time"

	"breathtrainer/internal/exercise"
)

// Completion says how a sequence run ended.
type Completion int

const (
	// CompletionNatural means the last phase of the last cycle ran out.
	CompletionNatural Completion = iota
	// CompletionStopped means the run was stopped before its natural end.
	CompletionStopped
)

func (c Completion) String() string {
	switch c {
	case CompletionNatural:
		return "natural"
	case CompletionStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Tick is the per-poll snapshot delivered to the sink while a phase is
// live. Values are unrounded; display rounding belongs to the UI layer.
type Tick struct {
	PhaseIndex int           // index into the expanded phase list
	CycleIndex int           // zero-based cycle counter
	Elapsed    time.Duration // inside the current phase, excluding pauses
	Remaining  time.Duration // zero for open-ended phases
	Progress   float64       // elapsed/duration in [0,1]; zero for open-ended
	OpenEnded  bool
}

// EventSink receives session playback events. All callbacks are invoked
// from the session's own loop goroutine, strictly ordered: a phase's
// final tick precedes its PhaseEnd, PhaseEnd(n) precedes PhaseStart(n+1),
// and SequenceDone is the last call a run ever makes. Implementations
// must not call back into Session.Shutdown from inside a callback.
type EventSink interface {
	// PhaseStart announces a phase beginning. prev is the phase that just
	// ended, nil at the start of the run.
	PhaseStart(phase exercise.Phase, prev *exercise.Phase)
	// TickUpdate delivers the per-poll countdown snapshot.
	TickUpdate(t Tick)
	// PhaseEnd announces a phase finishing, after its final tick.
	PhaseEnd(phase exercise.Phase)
	// SequenceDone announces the end of the run. Delivered exactly once
	// per run, for both natural and stopped completions.
	SequenceDone(c Completion)
}
