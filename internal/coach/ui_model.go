package coach

import (
	"context"
	"log"
	"sort"
	"sync"

	"breathtrainer/internal/engine"
	"breathtrainer/internal/events"
	"breathtrainer/internal/exercise"
	"breathtrainer/internal/heartrate"
	"breathtrainer/internal/journal"
	"breathtrainer/internal/safego"
)

// UIState holds the current state of the UI that views need to render
type UIState struct {
	Mode UIMode
}

const maxLogLines = 1000

// UIModel is the shared state between the session manager, the
// collaborating sources and the views. Views listen, the manager and
// the sources push.
type UIModel struct {
	logEvent          *events.Stream[string]
	uiStateEvent      *events.Stream[UIState]
	uiState           UIState
	exercisesEvent    *events.Stream[[]exercise.Definition]
	exercises         []exercise.Definition
	sessionStateEvent *events.Stream[SessionState]
	sessionState      SessionState
	heartRateEvent    *events.Stream[int]
	heartRate         int
	journalEvent      *events.Stream[[]journal.Record]
	journalRecords    []journal.Record
	closeAppEvent     *events.Stream[struct{}]

	logLines []string
	logMu    sync.RWMutex
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *log.Logger
}

// NewUIModel creates the model and starts listening to the custom
// exercise watcher, the heart rate source and the UI log channel. The
// journal store seeds the initial history; later records arrive through
// SetJournal.
func NewUIModel(watcher *exercise.Watcher, hr heartrate.Source, store *journal.Store, logger *log.Logger, uiLogChan <-chan string) *UIModel {
	if watcher == nil {
		panic("UIModel: watcher cannot be nil")
	}
	if hr == nil {
		panic("UIModel: heart rate source cannot be nil")
	}
	if store == nil {
		panic("UIModel: store cannot be nil")
	}
	if logger == nil {
		panic("UIModel: logger cannot be nil")
	}
	if uiLogChan == nil {
		panic("UIModel: uiLogChan cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	model := &UIModel{
		logEvent:          events.NewStream[string](false),
		uiStateEvent:      events.NewStream[UIState](true),
		uiState:           UIState{Mode: UIModeExerciseSelection},
		exercisesEvent:    events.NewStream[[]exercise.Definition](true),
		exercises:         mergeDefinitions(nil),
		sessionStateEvent: events.NewStream[SessionState](true),
		sessionState:      SessionState{Status: engine.StatusIdle},
		heartRateEvent:    events.NewStream[int](true),
		journalEvent:      events.NewStream[[]journal.Record](true),
		journalRecords:    store.List(),
		closeAppEvent:     events.NewStream[struct{}](true),
		logLines:          make([]string, 0, maxLogLines),
		ctx:               ctx,
		cancel:            cancel,
		logger:            logger,
	}

	// Listen to custom definition changes from the directory watcher
	model.wg.Add(1)
	safego.Go(model.logger, func() { model.listenToCustomDefinitions(ctx, watcher) })

	// Listen to live heart rate readings
	model.wg.Add(1)
	safego.Go(model.logger, func() { model.listenToHeartRate(ctx, hr) })

	// Read from the UI log channel and populate logLines
	model.wg.Add(1)
	safego.Go(model.logger, func() { model.readFromLogChannel(ctx, uiLogChan) })

	return model
}

// Shutdown stops all goroutines and waits for them to finish
func (m *UIModel) Shutdown() {
	m.logger.Printf("UIModel: shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Printf("UIModel: shutdown complete")
}

// ListenToLog registers a channel to receive log messages.
// Returns a deregistration function.
func (m *UIModel) ListenToLog(ch chan<- string) func() {
	return m.logEvent.Subscribe(ch)
}

// ListenToUIState registers a channel to receive UI state changes.
// Returns a deregistration function.
func (m *UIModel) ListenToUIState(ch chan<- UIState) func() {
	return m.uiStateEvent.Subscribe(ch)
}

// GetUIState returns the current UI state
func (m *UIModel) GetUIState() UIState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uiState
}

// SetMode updates the current UI mode and notifies listeners
func (m *UIModel) SetMode(mode UIMode) {
	m.mu.Lock()
	if m.uiState.Mode == mode {
		m.mu.Unlock()
		return
	}
	m.uiState.Mode = mode
	state := m.uiState
	m.mu.Unlock()

	m.uiStateEvent.Publish(state)
}

// ListenToExercises registers a channel to receive the merged exercise
// list. Returns a deregistration function.
func (m *UIModel) ListenToExercises(ch chan<- []exercise.Definition) func() {
	return m.exercisesEvent.Subscribe(ch)
}

// GetExercises returns a copy of the merged catalog and custom
// definition list
func (m *UIModel) GetExercises() []exercise.Definition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]exercise.Definition, len(m.exercises))
	copy(result, m.exercises)
	return result
}

// ListenToSessionState registers a channel to receive session state
// updates. Returns a deregistration function.
func (m *UIModel) ListenToSessionState(ch chan<- SessionState) func() {
	return m.sessionStateEvent.Subscribe(ch)
}

// GetSessionState returns the current session state
func (m *UIModel) GetSessionState() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionState
}

// SetSessionState updates the session state and notifies listeners
func (m *UIModel) SetSessionState(state SessionState) {
	m.mu.Lock()
	m.sessionState = state
	m.mu.Unlock()

	m.sessionStateEvent.Publish(state)
}

// ListenToHeartRate registers a channel to receive live heart rate
// readings. Returns a deregistration function.
func (m *UIModel) ListenToHeartRate(ch chan<- int) func() {
	return m.heartRateEvent.Subscribe(ch)
}

// GetHeartRate returns the most recent heart rate reading, zero when
// none arrived yet
func (m *UIModel) GetHeartRate() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heartRate
}

// ListenToJournal registers a channel to receive journal updates.
// Returns a deregistration function.
func (m *UIModel) ListenToJournal(ch chan<- []journal.Record) func() {
	return m.journalEvent.Subscribe(ch)
}

// GetJournal returns a copy of the journal records, newest first
func (m *UIModel) GetJournal() []journal.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]journal.Record, len(m.journalRecords))
	copy(result, m.journalRecords)
	return result
}

// SetJournal replaces the journal records and notifies listeners
func (m *UIModel) SetJournal(records []journal.Record) {
	m.mu.Lock()
	m.journalRecords = records
	recordsCopy := make([]journal.Record, len(records))
	copy(recordsCopy, records)
	m.mu.Unlock()

	m.journalEvent.Publish(recordsCopy)
}

// ListenToCloseApplication registers a channel to receive close
// application signals. Returns a deregistration function.
func (m *UIModel) ListenToCloseApplication(ch chan<- struct{}) func() {
	return m.closeAppEvent.Subscribe(ch)
}

// RequestCloseApplication signals that the application should close
func (m *UIModel) RequestCloseApplication() {
	m.logger.Printf("UIModel: application close requested")
	m.closeAppEvent.Publish(struct{}{})
}

// GetLogTail returns the last n lines of logs
func (m *UIModel) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return []string{}
	}

	if n >= len(m.logLines) {
		result := make([]string, len(m.logLines))
		copy(result, m.logLines)
		return result
	}

	result := make([]string, n)
	copy(result, m.logLines[len(m.logLines)-n:])
	return result
}

// readFromLogChannel reads log lines from the channel and populates
// logLines
func (m *UIModel) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				// Keep the most recent maxLogLines
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			// Notify listeners for immediate display
			m.logEvent.Publish(line)
		}
	}
}

// listenToCustomDefinitions merges watcher reloads into the exercise
// list and republishes it
func (m *UIModel) listenToCustomDefinitions(ctx context.Context, watcher *exercise.Watcher) {
	defer m.wg.Done()

	defsChan := make(chan []exercise.Definition, 1)
	unregister := watcher.ListenToDefinitions(defsChan)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case customs, ok := <-defsChan:
			if !ok {
				return
			}

			merged := mergeDefinitions(customs)

			m.mu.Lock()
			m.exercises = merged
			result := make([]exercise.Definition, len(merged))
			copy(result, merged)
			m.mu.Unlock()

			m.exercisesEvent.Publish(result)
		}
	}
}

// listenToHeartRate forwards readings into the model
func (m *UIModel) listenToHeartRate(ctx context.Context, hr heartrate.Source) {
	defer m.wg.Done()

	readings := make(chan int, 8)
	unregister := hr.ListenToReadings(readings)
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return
		case bpm, ok := <-readings:
			if !ok {
				return
			}

			m.mu.Lock()
			m.heartRate = bpm
			m.mu.Unlock()

			m.heartRateEvent.Publish(bpm)
		}
	}
}

// mergeDefinitions appends the custom definitions, sorted by name,
// after the built-in catalog
func mergeDefinitions(customs []exercise.Definition) []exercise.Definition {
	merged := make([]exercise.Definition, 0, len(exercise.AllExercises)+len(customs))
	merged = append(merged, exercise.AllExercises...)

	sortedCustoms := make([]exercise.Definition, len(customs))
	copy(sortedCustoms, customs)
	sort.Slice(sortedCustoms, func(i, j int) bool {
		return sortedCustoms[i].Name < sortedCustoms[j].Name
	})

	return append(merged, sortedCustoms...)
}
