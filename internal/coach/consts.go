// Package coach hosts the terminal application built around the
// session engine: the UI model/controller/view triad and the session
// manager that drives exercises and records them.
package coach

import (
	"time"

	"breathtrainer/internal/engine"
	"breathtrainer/internal/exercise"
)

// UIMode represents the current UI mode/screen
type UIMode int

const (
	UIModeExerciseSelection UIMode = iota // Exercise browsing and starting
	UIModeLiveSession                     // Running session display
	UIModeJournal                         // Past session history
)

// UIModeInfo contains display information for a UI mode
type UIModeInfo struct {
	Mode        UIMode
	DisplayName string
	KeyBinding  rune // The number key to activate this mode (1-9)
}

// AllUIModes defines all available UI modes in order
var AllUIModes = []UIModeInfo{
	{Mode: UIModeExerciseSelection, DisplayName: "Exercise Selection", KeyBinding: '1'},
	{Mode: UIModeLiveSession, DisplayName: "Live Session", KeyBinding: '2'},
	{Mode: UIModeJournal, DisplayName: "Journal", KeyBinding: '3'},
}

// GetUIModeByKey returns the mode for a given key binding
func GetUIModeByKey(key rune) (UIMode, bool) {
	for _, info := range AllUIModes {
		if info.KeyBinding == key {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetUIModeInfo returns the info for a given mode
func GetUIModeInfo(mode UIMode) (UIModeInfo, bool) {
	for _, info := range AllUIModes {
		if info.Mode == mode {
			return info, true
		}
	}
	return UIModeInfo{}, false
}

// SessionState holds the current state of session playback for display.
// Exercise is nil until the first session of the process starts;
// afterwards it keeps pointing at the last played definition so the
// live screen can summarize a finished run.
type SessionState struct {
	Status         engine.Status
	Exercise       *exercise.Definition
	Phase          exercise.Phase // The phase currently playing
	PhaseIndex     int            // Index within the current cycle (0-based)
	TotalPhases    int            // Phases per cycle
	CycleIndex     int            // Current cycle (0-based)
	TotalCycles    int
	PhaseElapsed   time.Duration // Inside the current phase, excluding pauses
	PhaseRemaining time.Duration // Zero for open-ended phases
	Progress       float64       // Phase progress in [0,1]; zero for open-ended
	OpenEnded      bool          // Current phase is an open-ended hold
	Contractions   int           // Marks recorded in the current hold
}
