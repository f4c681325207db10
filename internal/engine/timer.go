package engine

import "time"

// TickOutcome is what one observation of a PhaseTimer saw.
type TickOutcome struct {
	Updated   bool          // false while paused or when no run is live
	Elapsed   time.Duration // time inside the run, excluding paused spans
	Remaining time.Duration // countdown runs only; clamped at zero
	Done      bool          // countdown crossed zero on this observation
}

// PhaseTimer tracks a single phase countdown or open-ended count-up.
//
// The timer is passive: the owner polls Observe at its own cadence and
// the timer recomputes elapsed from the supplied clock reading on every
// call. Nothing is incremented per poll, so late or missed polls cannot
// accumulate drift. Pausing freezes the reported values without the
// owner having to stop polling.
//
// A PhaseTimer is not safe for concurrent use; the session loop owns it.
type PhaseTimer struct {
	duration    time.Duration
	openEnded   bool
	running     bool
	paused      bool
	startedAt   time.Time
	pausedAt    time.Time
	pausedAccum time.Duration
}

// Start begins a countdown run of d. No-op while a run is live; callers
// must Cancel first.
func (t *PhaseTimer) Start(now time.Time, d time.Duration) {
	if t.running {
		return
	}
	t.duration = d
	t.openEnded = false
	t.running = true
	t.paused = false
	t.startedAt = now
	t.pausedAt = time.Time{}
	t.pausedAccum = 0
}

// StartOpenEnded begins a count-up run with no scheduled end. The run
// finishes only via Cancel; the owner reads Elapsed for the result.
func (t *PhaseTimer) StartOpenEnded(now time.Time) {
	if t.running {
		return
	}
	t.duration = 0
	t.openEnded = true
	t.running = true
	t.paused = false
	t.startedAt = now
	t.pausedAt = time.Time{}
	t.pausedAccum = 0
}

// Pause freezes elapsed growth. No-op unless a run is live and unpaused.
func (t *PhaseTimer) Pause(now time.Time) {
	if !t.running || t.paused {
		return
	}
	t.paused = true
	t.pausedAt = now
}

// Resume folds the paused span into the excluded total and lets elapsed
// grow again. No-op unless the live run is paused.
func (t *PhaseTimer) Resume(now time.Time) {
	if !t.running || !t.paused {
		return
	}
	t.pausedAccum += now.Sub(t.pausedAt)
	t.pausedAt = time.Time{}
	t.paused = false
}

// Cancel ends the run without completing it. Idempotent; a cancelled
// run can never report Done.
func (t *PhaseTimer) Cancel() {
	t.running = false
	t.paused = false
}

// Running reports whether a run is live.
func (t *PhaseTimer) Running() bool { return t.running }

// Paused reports whether the live run is paused.
func (t *PhaseTimer) Paused() bool { return t.running && t.paused }

// OpenEnded reports whether the live run counts up without a deadline.
func (t *PhaseTimer) OpenEnded() bool { return t.running && t.openEnded }

// Elapsed returns time spent inside the run, excluding paused spans.
// While paused it returns the value frozen at the pause instant. Zero
// when no run is live.
func (t *PhaseTimer) Elapsed(now time.Time) time.Duration {
	if !t.running {
		return 0
	}
	at := now
	if t.paused {
		at = t.pausedAt
	}
	return at.Sub(t.startedAt) - t.pausedAccum
}

// Remaining returns the time left in a countdown run, clamped at zero.
// Zero for open-ended runs and when no run is live.
func (t *PhaseTimer) Remaining(now time.Time) time.Duration {
	if !t.running || t.openEnded {
		return 0
	}
	remaining := t.duration - t.Elapsed(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Observe computes the run's state at the given clock reading. While
// paused, or when no run is live, the outcome has Updated false and the
// owner should render nothing new. When a countdown's unrounded elapsed
// reaches the duration the run ends and Done is reported exactly once,
// with Remaining clamped to zero and Elapsed clamped to the duration so
// the owner can still deliver the final tick.
func (t *PhaseTimer) Observe(now time.Time) TickOutcome {
	if !t.running || t.paused {
		return TickOutcome{}
	}
	elapsed := now.Sub(t.startedAt) - t.pausedAccum
	if t.openEnded {
		return TickOutcome{Updated: true, Elapsed: elapsed}
	}
	if elapsed >= t.duration {
		t.running = false
		return TickOutcome{Updated: true, Elapsed: t.duration, Done: true}
	}
	return TickOutcome{Updated: true, Elapsed: elapsed, Remaining: t.duration - elapsed}
}
