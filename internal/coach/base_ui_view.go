package coach

import (
	"context"
	"log"
	"sync"
	"time"

	"breathtrainer/internal/exercise"
	"breathtrainer/internal/journal"
	"breathtrainer/internal/safego"
)

// BaseUIView contains the base logic shared by all UI implementations:
// it subscribes to the model's events and forwards them to the
// framework-specific view.
type BaseUIView struct {
	uiViewImpl   UIViewImpl
	uiModel      *UIModel
	uiController *UIController
	context      context.Context
	cancelFunc   context.CancelFunc
	waitGroup    sync.WaitGroup
	logger       *log.Logger
}

// NewBaseUIViewArg holds the arguments for creating a new BaseUIView
type NewBaseUIViewArg struct {
	UIViewImpl   UIViewImpl
	UIModel      *UIModel
	UIController *UIController
	Logger       *log.Logger
}

// NewBaseUIView creates a new BaseUIView with the given implementation
func NewBaseUIView(args NewBaseUIViewArg) *BaseUIView {
	if args.Logger == nil {
		panic("BaseUIView: logger cannot be nil")
	}
	if args.UIViewImpl == nil {
		panic("BaseUIView: UIViewImpl cannot be nil")
	}
	if args.UIModel == nil {
		panic("BaseUIView: UIModel cannot be nil")
	}
	if args.UIController == nil {
		panic("BaseUIView: UIController cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())

	base := &BaseUIView{
		uiViewImpl:   args.UIViewImpl,
		uiModel:      args.UIModel,
		uiController: args.UIController,
		context:      ctx,
		cancelFunc:   cancel,
		waitGroup:    sync.WaitGroup{},
		logger:       args.Logger,
	}

	// Initialize framework-specific widgets
	args.UIViewImpl.Initialize(args.UIController)

	// Set up keyboard handlers
	args.UIViewImpl.SetupKeyboardHandlers(args.UIController)

	// Seed displays from the model; later changes arrive through the
	// event listeners
	args.UIViewImpl.SetMode(args.UIModel.GetUIState().Mode)
	args.UIViewImpl.SetExerciseList(args.UIModel.GetExercises())
	args.UIViewImpl.UpdateSessionState(args.UIModel.GetSessionState())
	args.UIViewImpl.SetJournal(args.UIModel.GetJournal())

	// Set up periodic resize check and initial display
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() { base.monitorLogResize() })
	base.updateLogDisplay()

	base.setupEventListeners()

	return base
}

func (base *BaseUIView) setupEventListeners() {
	// Listen to log messages from model
	logChan := make(chan string, 1)
	logUnregister := base.uiModel.ListenToLog(logChan)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer logUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case _, ok := <-logChan:
				if !ok {
					return
				}
				// When a new log arrives, update the display to show the tail
				base.updateLogDisplay()
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: error drawing: %v", err)
				}
			}
		}
	})

	// Listen to UI state changes from model
	uiStateChan := make(chan UIState, 1)
	uiStateUnregister := base.uiModel.ListenToUIState(uiStateChan)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer uiStateUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case state, ok := <-uiStateChan:
				if !ok {
					return
				}
				base.uiViewImpl.SetMode(state.Mode)
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: error drawing: %v", err)
				}
			}
		}
	})

	// Listen to exercise list changes from model
	exercisesChan := make(chan []exercise.Definition, 1)
	exercisesUnregister := base.uiModel.ListenToExercises(exercisesChan)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer exercisesUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case defs, ok := <-exercisesChan:
				if !ok {
					return
				}
				base.uiViewImpl.SetExerciseList(defs)
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: error drawing: %v", err)
				}
			}
		}
	})

	// Listen to session state changes from model. Buffered a little
	// deeper than the rest: ticks arrive at poll rate.
	sessionChan := make(chan SessionState, 4)
	sessionUnregister := base.uiModel.ListenToSessionState(sessionChan)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer sessionUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case state, ok := <-sessionChan:
				if !ok {
					return
				}
				base.uiViewImpl.UpdateSessionState(state)
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: error drawing: %v", err)
				}
			}
		}
	})

	// Listen to heart rate readings from model
	heartRateChan := make(chan int, 4)
	heartRateUnregister := base.uiModel.ListenToHeartRate(heartRateChan)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer heartRateUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case bpm, ok := <-heartRateChan:
				if !ok {
					return
				}
				base.uiViewImpl.UpdateHeartRate(bpm)
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: error drawing: %v", err)
				}
			}
		}
	})

	// Listen to journal changes from model
	journalChan := make(chan []journal.Record, 1)
	journalUnregister := base.uiModel.ListenToJournal(journalChan)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer journalUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case records, ok := <-journalChan:
				if !ok {
					return
				}
				base.uiViewImpl.SetJournal(records)
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: error drawing: %v", err)
				}
			}
		}
	})

	// Listen to close application event from model
	closeChan := make(chan struct{}, 1)
	closeUnregister := base.uiModel.ListenToCloseApplication(closeChan)
	base.waitGroup.Add(1)
	safego.Go(base.logger, func() {
		defer base.waitGroup.Done()
		defer closeUnregister()
		select {
		case <-base.context.Done():
			return
		case _, ok := <-closeChan:
			if !ok {
				return
			}
			// Stop the UI implementation
			base.uiViewImpl.Stop()
		}
	})
}

func (base *BaseUIView) updateLogDisplay() {
	// Get the visible height of the log view
	height := base.uiViewImpl.GetLogViewHeight()
	if height <= 0 {
		return
	}

	// Get the tail of logs that fit in the visible area
	logLines := base.uiModel.GetLogTail(height)

	// Clear and update the log view
	base.uiViewImpl.ClearLogView()
	for _, line := range logLines {
		if err := base.uiViewImpl.WriteLogLine(line + "\n"); err != nil {
			base.logger.Printf("BaseUIView: error writing to log view: %v", err)
		}
	}
}

func (base *BaseUIView) monitorLogResize() {
	defer base.waitGroup.Done()
	var lastHeight int
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-base.context.Done():
			return
		case <-ticker.C:
			height := base.uiViewImpl.GetLogViewHeight()
			if height != lastHeight && height > 0 {
				lastHeight = height
				base.updateLogDisplay()
				if err := base.uiViewImpl.Draw(); err != nil {
					base.logger.Printf("BaseUIView: error drawing: %v", err)
				}
			}
		}
	}
}

// Shutdown stops all goroutines and waits for them to finish
func (base *BaseUIView) Shutdown() {
	base.logger.Printf("BaseUIView: shutting down")
	base.cancelFunc()
	base.waitGroup.Wait()
	base.logger.Printf("BaseUIView: shutdown complete")
}

// Run starts the UI and blocks until it exits
func (base *BaseUIView) Run() error {
	return base.uiViewImpl.Run()
}
