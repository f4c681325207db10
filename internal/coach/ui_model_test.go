package coach

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breathtrainer/internal/exercise"
	"breathtrainer/internal/heartrate"
	"breathtrainer/internal/journal"
)

type modelFixture struct {
	model     *UIModel
	watcher   *exercise.Watcher
	customDir string
	logChan   chan string
}

func newModelFixture(t *testing.T, hr heartrate.Source) *modelFixture {
	t.Helper()
	logger := discardLogger()
	dir := t.TempDir()

	customDir := filepath.Join(dir, "custom")
	watcher := exercise.NewWatcher(customDir, logger)
	store := journal.NewStore(filepath.Join(dir, "journal.json"), logger)
	logChan := make(chan string, 8)

	model := NewUIModel(watcher, hr, store, logger, logChan)
	t.Cleanup(func() {
		model.Shutdown()
		watcher.Shutdown()
	})
	return &modelFixture{model: model, watcher: watcher, customDir: customDir, logChan: logChan}
}

func writeCustomDef(t *testing.T, dir, file, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	body := "name: " + name + "\n" +
		"family: breathing\n" +
		"breathing:\n" +
		"  cycles: 6\n" +
		"  pattern:\n" +
		"    - label: Inhale\n" +
		"      kind: inhale\n" +
		"      seconds: 5\n" +
		"    - label: Exhale\n" +
		"      kind: exhale\n" +
		"      seconds: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0644))
}

func TestUIModelStartsWithCatalog(t *testing.T) {
	f := newModelFixture(t, heartrate.NullSource{})

	defs := f.model.GetExercises()
	require.Len(t, defs, len(exercise.AllExercises))
	for i, def := range defs {
		assert.Equal(t, exercise.AllExercises[i].Name, def.Name)
	}
}

func TestUIModelMergesCustomDefinitions(t *testing.T) {
	f := newModelFixture(t, heartrate.NullSource{})

	// File names reverse the exercise names, so the sorted merge order
	// below proves the model sorts by name rather than by file.
	writeCustomDef(t, f.customDir, "z.yaml", "Alpha Calm")
	writeCustomDef(t, f.customDir, "a.yaml", "Zen Minute")
	require.NoError(t, f.watcher.Start())

	require.Eventually(t, func() bool {
		return len(f.model.GetExercises()) == len(exercise.AllExercises)+2
	}, waitFor, 5*time.Millisecond)

	defs := f.model.GetExercises()
	assert.Equal(t, "Alpha Calm", defs[len(defs)-2].Name)
	assert.Equal(t, "Zen Minute", defs[len(defs)-1].Name)
}

func TestUIModelLogTail(t *testing.T) {
	f := newModelFixture(t, heartrate.NullSource{})

	f.logChan <- "first line"
	f.logChan <- "second line"
	f.logChan <- "third line"

	require.Eventually(t, func() bool {
		return len(f.model.GetLogTail(10)) == 3
	}, waitFor, 2*time.Millisecond)

	assert.Equal(t, []string{"second line", "third line"}, f.model.GetLogTail(2))
}

func TestUIModelSetModeShortCircuits(t *testing.T) {
	f := newModelFixture(t, heartrate.NullSource{})

	ch := make(chan UIState, 4)
	unsub := f.model.ListenToUIState(ch)
	defer unsub()

	// Replay delivers the current state on subscribe
	select {
	case state := <-ch:
		assert.Equal(t, UIModeExerciseSelection, state.Mode)
	case <-time.After(waitFor):
		t.Fatal("no replayed state")
	}

	f.model.SetMode(UIModeExerciseSelection)
	select {
	case state := <-ch:
		t.Fatalf("unchanged mode republished: %+v", state)
	case <-time.After(50 * time.Millisecond):
	}

	f.model.SetMode(UIModeJournal)
	select {
	case state := <-ch:
		assert.Equal(t, UIModeJournal, state.Mode)
	case <-time.After(waitFor):
		t.Fatal("mode change not published")
	}
	assert.Equal(t, UIModeJournal, f.model.GetUIState().Mode)
}

func TestUIModelCloseRequest(t *testing.T) {
	f := newModelFixture(t, heartrate.NullSource{})

	ch := make(chan struct{}, 1)
	unsub := f.model.ListenToCloseApplication(ch)
	defer unsub()

	f.model.RequestCloseApplication()
	select {
	case <-ch:
	case <-time.After(waitFor):
		t.Fatal("close request not published")
	}
}

func TestUIModelFollowsHeartRateSource(t *testing.T) {
	sim := heartrate.NewSimulator(discardLogger(), 2*time.Millisecond)
	defer sim.Shutdown()

	f := newModelFixture(t, sim)

	require.Eventually(t, func() bool {
		return f.model.GetHeartRate() > 0
	}, waitFor, 2*time.Millisecond)
}
