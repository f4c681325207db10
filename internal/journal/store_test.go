package journal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breathtrainer/internal/engine"
	"breathtrainer/internal/exercise"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func sampleRecord(exerciseName string, ended time.Time) Record {
	return FromResult(engine.Result{
		Exercise:   exerciseName,
		Family:     exercise.FamilyBreathing,
		StartedAt:  ended.Add(-5 * time.Minute),
		EndedAt:    ended,
		Completion: engine.CompletionNatural,
		PhasesDone: 16,
		CyclesDone: 4,
	}, 0)
}

func TestFromResultMapsHolds(t *testing.T) {
	res := engine.Result{
		Exercise:   "Max Hold Attempt",
		Family:     exercise.FamilyToleranceHold,
		StartedAt:  time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		EndedAt:    time.Date(2024, 3, 1, 8, 4, 0, 0, time.UTC),
		Completion: engine.CompletionStopped,
		PhasesDone: 2,
		Holds: []engine.HoldResult{
			{PhaseIndex: 1, Achieved: 95 * time.Second, Contractions: []time.Duration{80 * time.Second, 85 * time.Second}},
			{PhaseIndex: 3, Achieved: 80 * time.Second, Contractions: []time.Duration{75 * time.Second}},
		},
	}

	rec := FromResult(res, 72)

	assert.NotEqual(t, [16]byte{}, [16]byte(rec.ID))
	assert.Equal(t, "Max Hold Attempt", rec.Exercise)
	assert.Equal(t, "tolerance", rec.Family)
	assert.Equal(t, "stopped", rec.Completion)
	assert.Equal(t, 72, rec.AvgHeartRate)
	assert.Equal(t, 3, rec.Contractions)
	require.Len(t, rec.Holds, 2)
	assert.Equal(t, Hold{Phase: 1, AchievedSeconds: 95, Contractions: 2}, rec.Holds[0])
	assert.Equal(t, Hold{Phase: 3, AchievedSeconds: 80, Contractions: 1}, rec.Holds[1])
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")

	s := NewStore(path, discardLogger())
	assert.Equal(t, 0, s.Len())

	first := sampleRecord("Box Breathing", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	second := sampleRecord("Coherent Breathing", time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC))
	require.NoError(t, s.Append(first))
	require.NoError(t, s.Append(second))

	reopened := NewStore(path, discardLogger())
	require.Equal(t, 2, reopened.Len())

	list := reopened.List()
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "Box Breathing", list[1].Exercise)
}

func TestStoreCreatesMissingDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "journal.json")

	s := NewStore(path, discardLogger())
	require.NoError(t, s.Append(sampleRecord("Box Breathing", time.Now())))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestStoreMovesCorruptFileAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewStore(path, discardLogger())
	assert.Equal(t, 0, s.Len())

	_, err := os.Stat(path + ".corrupt")
	assert.NoError(t, err, "corrupt file moved aside, not overwritten")

	require.NoError(t, s.Append(sampleRecord("Box Breathing", time.Now())))
	assert.Equal(t, 1, NewStore(path, discardLogger()).Len())
}

func TestStoreInvalidArgsPanic(t *testing.T) {
	assert.Panics(t, func() { NewStore("", discardLogger()) })
	assert.Panics(t, func() { NewStore("journal.json", nil) })
}
