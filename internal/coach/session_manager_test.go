package coach

import (
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"breathtrainer/internal/audio"
	"breathtrainer/internal/engine"
	"breathtrainer/internal/exercise"
	"breathtrainer/internal/heartrate"
	"breathtrainer/internal/journal"
	"breathtrainer/internal/voice"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// waitFor bounds Eventually waits on state driven by the 5ms engine poll.
const waitFor = 2 * time.Second

type fixture struct {
	model   *UIModel
	manager *SessionManager
	store   *journal.Store
	best    *PersonalBestStore
}

// newFixture wires a manager against real collaborators: a journal store
// and personal best store in a temp dir, silent audio and voice backends,
// and a 5ms engine poll so runs finish quickly.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := discardLogger()
	dir := t.TempDir()

	watcher := exercise.NewWatcher(filepath.Join(dir, "custom"), logger)
	store := journal.NewStore(filepath.Join(dir, "journal.json"), logger)
	best := NewPersonalBestStore(filepath.Join(dir, "state.json"), logger)
	suspend := engine.NewSuspendWatcher(nil, time.Hour, logger)
	logChan := make(chan string)

	model := NewUIModel(watcher, heartrate.NullSource{}, store, logger, logChan)
	manager := NewSessionManager(NewSessionManagerArg{
		Model:        model,
		Cues:         audio.NullPlayer{},
		Announcer:    voice.NullAnnouncer{},
		Store:        store,
		HeartRate:    heartrate.NullSource{},
		Suspend:      suspend,
		PersonalBest: 90 * time.Second,
		Best:         best,
		Options:      engine.Options{PollInterval: 5 * time.Millisecond},
		Logger:       logger,
	})

	t.Cleanup(func() {
		manager.Shutdown()
		model.Shutdown()
		watcher.Shutdown()
		suspend.Shutdown()
	})
	return &fixture{model: model, manager: manager, store: store, best: best}
}

// quickBreathing is a two-phase pattern short enough to complete within
// a test but long enough to observe ticks at the 5ms poll.
func quickBreathing(name string, phase time.Duration, cycles int) exercise.Definition {
	return exercise.Definition{
		Name:   name,
		Family: exercise.FamilyBreathing,
		Breathing: &exercise.BreathingSpec{
			Pattern: []exercise.Phase{
				{Label: "Inhale", Kind: exercise.KindInhale, Duration: phase},
				{Label: "Exhale", Kind: exercise.KindExhale, Duration: phase},
			},
			Cycles: cycles,
		},
	}
}

func openHoldDef() exercise.Definition {
	return exercise.Definition{
		Name:   "Max Hold",
		Family: exercise.FamilyToleranceHold,
		Tolerance: &exercise.ToleranceSpec{
			HoldLabel: "Hold",
		},
	}
}

func (f *fixture) waitForStatus(t *testing.T, want engine.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.manager.State().Status == want
	}, waitFor, 2*time.Millisecond, "waiting for status %s", want)
}

func TestStartExercisePublishesRunningState(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.StartExercise(quickBreathing("Test Pattern", time.Hour, 1)))

	f.waitForStatus(t, engine.StatusRunning)
	require.Eventually(t, func() bool {
		state := f.model.GetSessionState()
		return state.Status == engine.StatusRunning && state.Exercise != nil
	}, waitFor, 2*time.Millisecond)

	state := f.model.GetSessionState()
	assert.Equal(t, "Test Pattern", state.Exercise.Name)
	assert.Equal(t, 2, state.TotalPhases)
	assert.Equal(t, 1, state.TotalCycles)
	assert.Equal(t, "Inhale", state.Phase.Label)

	// Ticks keep flowing into the model while running
	require.Eventually(t, func() bool {
		return f.model.GetSessionState().PhaseElapsed > 0
	}, waitFor, 2*time.Millisecond)
}

func TestStartExerciseRejectsWhileLive(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.StartExercise(quickBreathing("First", time.Hour, 1)))
	f.waitForStatus(t, engine.StatusRunning)

	err := f.manager.StartExercise(quickBreathing("Second", time.Hour, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
	assert.Equal(t, "First", f.manager.State().Exercise.Name)
}

func TestCompletionWritesJournalRecord(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.StartExercise(quickBreathing("Short", 20*time.Millisecond, 2)))

	f.waitForStatus(t, engine.StatusCompleted)
	require.Eventually(t, func() bool {
		return len(f.store.List()) == 1
	}, waitFor, 5*time.Millisecond)

	rec := f.store.List()[0]
	assert.Equal(t, "Short", rec.Exercise)
	assert.Equal(t, "natural", rec.Completion)
	assert.Equal(t, 4, rec.PhasesDone)
	assert.Equal(t, 2, rec.Cycles)

	// The model's journal follows the store
	require.Eventually(t, func() bool {
		return len(f.model.GetJournal()) == 1
	}, waitFor, 5*time.Millisecond)
}

func TestStopJournalsStoppedRecord(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.StartExercise(quickBreathing("Long", time.Hour, 1)))
	f.waitForStatus(t, engine.StatusRunning)

	f.manager.Stop()

	f.waitForStatus(t, engine.StatusStopped)
	require.Eventually(t, func() bool {
		return len(f.store.List()) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, "stopped", f.store.List()[0].Completion)
}

func TestTogglePauseFreezesTicks(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.StartExercise(quickBreathing("Pausable", time.Hour, 1)))
	f.waitForStatus(t, engine.StatusRunning)

	f.manager.TogglePause()
	f.waitForStatus(t, engine.StatusPaused)

	// Let any tick that raced the pause land before sampling
	time.Sleep(25 * time.Millisecond)
	before := f.model.GetSessionState().PhaseElapsed

	time.Sleep(50 * time.Millisecond)
	after := f.model.GetSessionState().PhaseElapsed
	assert.Equal(t, before, after, "elapsed advanced while paused")

	f.manager.TogglePause()
	f.waitForStatus(t, engine.StatusRunning)
	require.Eventually(t, func() bool {
		return f.model.GetSessionState().PhaseElapsed > after
	}, waitFor, 2*time.Millisecond)
}

func TestRestartAfterCompletionKeepsBothRecords(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.StartExercise(quickBreathing("Repeatable", 20*time.Millisecond, 1)))
	f.waitForStatus(t, engine.StatusCompleted)
	require.Eventually(t, func() bool {
		return len(f.store.List()) == 1
	}, waitFor, 5*time.Millisecond)

	f.manager.Restart()

	require.Eventually(t, func() bool {
		return len(f.store.List()) == 2
	}, waitFor, 5*time.Millisecond)
	for _, rec := range f.store.List() {
		assert.Equal(t, "Repeatable", rec.Exercise)
	}
}

func TestRestartWhileRunningResetsInPlace(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.StartExercise(quickBreathing("Resettable", 100*time.Millisecond, 50)))
	f.waitForStatus(t, engine.StatusRunning)

	// Let a phase pass, then rewind
	require.Eventually(t, func() bool {
		state := f.model.GetSessionState()
		return state.PhaseIndex > 0 || state.CycleIndex > 0
	}, waitFor, 2*time.Millisecond)

	f.manager.Restart()

	require.Eventually(t, func() bool {
		state := f.model.GetSessionState()
		return state.Status == engine.StatusRunning &&
			state.PhaseIndex == 0 && state.CycleIndex == 0 &&
			state.PhaseElapsed < 100*time.Millisecond
	}, waitFor, 2*time.Millisecond)

	// A reset run is still one run: no journal entry yet
	assert.Empty(t, f.store.List())
}

func TestOpenHoldContractionsAndCompletion(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.manager.StartExercise(openHoldDef()))

	require.Eventually(t, func() bool {
		state := f.model.GetSessionState()
		return state.Status == engine.StatusRunning && state.OpenEnded
	}, waitFor, 2*time.Millisecond)

	f.manager.MarkContraction()
	f.manager.MarkContraction()
	require.Eventually(t, func() bool {
		return f.model.GetSessionState().Contractions == 2
	}, waitFor, 2*time.Millisecond)

	f.manager.CompleteHold()
	f.waitForStatus(t, engine.StatusCompleted)

	require.Eventually(t, func() bool {
		return len(f.store.List()) == 1
	}, waitFor, 5*time.Millisecond)
	rec := f.store.List()[0]
	require.Len(t, rec.Holds, 1)
	assert.Equal(t, 2, rec.Holds[0].Contractions)
	assert.Equal(t, 2, rec.Contractions)
}

func TestPersonalBestRaisedByLongerHold(t *testing.T) {
	f := newFixture(t)

	// Fixture starts at 90s; a millisecond-scale hold must not lower it
	require.NoError(t, f.manager.StartExercise(openHoldDef()))
	require.Eventually(t, func() bool {
		return f.model.GetSessionState().OpenEnded
	}, waitFor, 2*time.Millisecond)
	f.manager.CompleteHold()
	f.waitForStatus(t, engine.StatusCompleted)
	assert.Equal(t, 90*time.Second, f.manager.GetPersonalBest())

	// A configured best below the achieved hold gets raised and persisted
	f.manager.SetPersonalBest(time.Millisecond)
	require.NoError(t, f.manager.StartExercise(openHoldDef()))
	require.Eventually(t, func() bool {
		return f.model.GetSessionState().OpenEnded
	}, waitFor, 2*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	f.manager.CompleteHold()
	f.waitForStatus(t, engine.StatusCompleted)

	require.Eventually(t, func() bool {
		return f.manager.GetPersonalBest() > time.Millisecond
	}, waitFor, 2*time.Millisecond)
	assert.InDelta(t, f.manager.GetPersonalBest().Seconds(), f.best.Best().Seconds(), 0.001)
}

func TestPersonalBestResolvesRatioTables(t *testing.T) {
	f := newFixture(t)
	f.manager.SetPersonalBest(40 * time.Millisecond)

	def := exercise.Definition{
		Name:   "CO2 Table",
		Family: exercise.FamilyApneaTable,
		Table: &exercise.TableSpec{
			HoldRatios: []float64{0.5, 0.5},
			Rests:      []time.Duration{10 * time.Millisecond, 10 * time.Millisecond},
		},
	}

	// Without resolution the ratio form cannot expand, so a successful
	// start proves the manager applied the base hold.
	require.NoError(t, f.manager.StartExercise(def))
	f.waitForStatus(t, engine.StatusCompleted)

	require.Eventually(t, func() bool {
		return len(f.store.List()) == 1
	}, waitFor, 5*time.Millisecond)
	assert.Equal(t, "natural", f.store.List()[0].Completion)
}

func TestControlsWithoutSessionAreSafe(t *testing.T) {
	f := newFixture(t)

	f.manager.TogglePause()
	f.manager.Stop()
	f.manager.Restart()
	f.manager.MarkContraction()
	f.manager.CompleteHold()

	assert.Equal(t, engine.StatusIdle, f.manager.State().Status)
	assert.Empty(t, f.store.List())
}

func TestShutdownJournalsLiveSession(t *testing.T) {
	logger := discardLogger()
	dir := t.TempDir()

	watcher := exercise.NewWatcher(filepath.Join(dir, "custom"), logger)
	defer watcher.Shutdown()
	store := journal.NewStore(filepath.Join(dir, "journal.json"), logger)
	suspend := engine.NewSuspendWatcher(nil, time.Hour, logger)
	defer suspend.Shutdown()
	model := NewUIModel(watcher, heartrate.NullSource{}, store, logger, make(chan string))
	defer model.Shutdown()

	manager := NewSessionManager(NewSessionManagerArg{
		Model:     model,
		Cues:      audio.NullPlayer{},
		Announcer: voice.NullAnnouncer{},
		Store:     store,
		HeartRate: heartrate.NullSource{},
		Suspend:   suspend,
		Options:   engine.Options{PollInterval: 5 * time.Millisecond},
		Logger:    logger,
	})

	require.NoError(t, manager.StartExercise(quickBreathing("Interrupted", time.Hour, 1)))
	require.Eventually(t, func() bool {
		return manager.State().Status == engine.StatusRunning
	}, waitFor, 2*time.Millisecond)

	manager.Shutdown()

	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, "stopped", records[0].Completion)

	// Safe to call again
	manager.Shutdown()
}

func TestNewSessionManagerPanicsOnNilDeps(t *testing.T) {
	logger := discardLogger()
	dir := t.TempDir()
	watcher := exercise.NewWatcher(filepath.Join(dir, "custom"), logger)
	defer watcher.Shutdown()
	store := journal.NewStore(filepath.Join(dir, "journal.json"), logger)
	suspend := engine.NewSuspendWatcher(nil, time.Hour, logger)
	defer suspend.Shutdown()
	model := NewUIModel(watcher, heartrate.NullSource{}, store, logger, make(chan string))
	defer model.Shutdown()

	valid := func() NewSessionManagerArg {
		return NewSessionManagerArg{
			Model:     model,
			Cues:      audio.NullPlayer{},
			Announcer: voice.NullAnnouncer{},
			Store:     store,
			HeartRate: heartrate.NullSource{},
			Suspend:   suspend,
			Logger:    logger,
		}
	}

	assert.Panics(t, func() {
		arg := valid()
		arg.Model = nil
		NewSessionManager(arg)
	})
	assert.Panics(t, func() {
		arg := valid()
		arg.Cues = nil
		NewSessionManager(arg)
	})
	assert.Panics(t, func() {
		arg := valid()
		arg.Logger = nil
		NewSessionManager(arg)
	})
}
