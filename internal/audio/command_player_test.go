package audio

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breathtrainer/internal/exercise"
)

func TestCommandPlayerPassesCueArguments(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "cues.txt")
	script := filepath.Join(dir, "cue.sh")
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\necho \"$@\" >> "+out+"\n"), 0755))

	p := NewCommandPlayer(script, discardLogger())
	p.PhaseStarted(exercise.KindExhale, 4*time.Second)
	p.SessionEnded()
	p.Shutdown()

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "exhale 4")
	assert.Contains(t, string(raw), "done")
}

func TestCommandPlayerInvalidArgsPanic(t *testing.T) {
	assert.Panics(t, func() { NewCommandPlayer("", discardLogger()) })
	assert.Panics(t, func() { NewCommandPlayer("  ", discardLogger()) })
	assert.Panics(t, func() { NewCommandPlayer("espeak", nil) })
}
