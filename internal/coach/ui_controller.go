package coach

import (
	"log"

	"breathtrainer/internal/engine"
)

// UIController handles UI events and coordinates the model and the
// session manager
type UIController struct {
	model   *UIModel
	manager *SessionManager
	logger  *log.Logger
}

// NewUIController creates a new UIController with the given dependencies
func NewUIController(model *UIModel, manager *SessionManager, logger *log.Logger) *UIController {
	if model == nil {
		panic("UIController: model cannot be nil")
	}
	if manager == nil {
		panic("UIController: manager cannot be nil")
	}
	if logger == nil {
		panic("UIController: logger cannot be nil")
	}

	return &UIController{
		model:   model,
		manager: manager,
		logger:  logger,
	}
}

// OnModeChange handles when the user requests a mode change
func (c *UIController) OnModeChange(mode UIMode) {
	if info, ok := GetUIModeInfo(mode); ok {
		c.logger.Printf("Switching to %s mode", info.DisplayName)
	}
	c.model.SetMode(mode)
}

// OnExerciseChosen handles when an exercise is chosen from the list.
// A successful start switches the UI to the live session screen.
func (c *UIController) OnExerciseChosen(index int) {
	defs := c.model.GetExercises()
	if index < 0 || index >= len(defs) {
		c.logger.Printf("Invalid exercise index: %d", index)
		return
	}

	def := defs[index]
	c.logger.Printf("Exercise chosen: %s", def.Name)
	if err := c.manager.StartExercise(def); err != nil {
		return
	}
	c.model.SetMode(UIModeLiveSession)
}

// OnToggleSession pauses or resumes the session based on current state
func (c *UIController) OnToggleSession() {
	state := c.manager.State()
	switch state.Status {
	case engine.StatusRunning, engine.StatusPaused:
		c.manager.TogglePause()
	case engine.StatusCompleted, engine.StatusStopped:
		c.logger.Printf("Session finished - press r to restart or pick another exercise (press 1)")
	default:
		c.logger.Printf("No session running - choose an exercise in Exercise Selection mode (press 1)")
	}
}

// OnStopSession stops the running session
func (c *UIController) OnStopSession() {
	c.manager.Stop()
}

// OnRestartSession replays the current exercise from the beginning
func (c *UIController) OnRestartSession() {
	c.manager.Restart()
}

// OnMarkContraction records a contraction during an open-ended hold
func (c *UIController) OnMarkContraction() {
	c.manager.MarkContraction()
}

// OnCompleteHold finishes the current open-ended hold
func (c *UIController) OnCompleteHold() {
	c.manager.CompleteHold()
}

// OnEscapeKey handles when the Escape key is pressed
func (c *UIController) OnEscapeKey() {
	c.model.RequestCloseApplication()
}

// Shutdown stops the session manager and cleans up resources
func (c *UIController) Shutdown() {
	c.manager.Shutdown()
}
