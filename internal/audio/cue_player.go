// Package audio plays short cues on phase boundaries so an exercise can
// be followed with eyes closed.
package audio

import (
	"time"

	"breathtrainer/internal/exercise"
)

// CuePlayer receives phase-boundary cues from the session manager.
// Implementations must return promptly; anything slow happens on their
// own goroutines.
type CuePlayer interface {
	// PhaseStarted cues the beginning of a phase.
	PhaseStarted(kind exercise.PhaseKind, duration time.Duration)

	// SessionEnded cues the end of the whole session.
	SessionEnded()

	// Resync discards any cues queued before a host suspend so the
	// player does not replay a backlog on wake.
	Resync()

	// Shutdown releases player resources. Idempotent.
	Shutdown()
}

// NullPlayer is the silent backend.
type NullPlayer struct{}

func (NullPlayer) PhaseStarted(exercise.PhaseKind, time.Duration) {}
func (NullPlayer) SessionEnded()                                  {}
func (NullPlayer) Resync()                                        {}
func (NullPlayer) Shutdown()                                      {}
