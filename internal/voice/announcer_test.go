package voice

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func TestNullAnnouncerNeverCallsDone(t *testing.T) {
	var called atomic.Bool
	var a Announcer = NullAnnouncer{}

	a.Say("breathe in", func() { called.Store(true) })
	a.Stop()
	a.Shutdown()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, called.Load())
}

func TestCommandAnnouncerSpeaksAndCallsDone(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "spoken.txt")
	script := filepath.Join(dir, "say.sh")
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\necho \"$1\" >> "+out+"\n"), 0755))

	doneCh := make(chan struct{})
	a := NewCommandAnnouncer(script, discardLogger())
	a.Say("breathe in slowly", func() { close(doneCh) })

	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("done was not called")
	}
	a.Shutdown()

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "breathe in slowly")
}

func TestCommandAnnouncerStopSuppressesDone(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	script := filepath.Join(dir, "slow.sh")
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\nsleep 10\n"), 0755))

	var called atomic.Bool
	a := NewCommandAnnouncer(script, discardLogger())
	a.Say("anything", func() { called.Store(true) })

	time.Sleep(50 * time.Millisecond)
	a.Stop()
	a.Shutdown() // waits for the killed process to be reaped

	assert.False(t, called.Load())
}

func TestCommandAnnouncerSecondSaySupersedesFirst(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "spoken.txt")
	script := filepath.Join(dir, "say.sh")
	// First call hangs, second exits immediately.
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\nif [ \"$1\" = slow ]; then sleep 10; fi\necho \"$1\" >> "+out+"\n"), 0755))

	var firstDone, secondDone atomic.Bool
	a := NewCommandAnnouncer(script, discardLogger())

	a.Say("slow", func() { firstDone.Store(true) })
	time.Sleep(50 * time.Millisecond)
	a.Say("fast", func() { secondDone.Store(true) })

	require.Eventually(t, func() bool { return secondDone.Load() },
		2*time.Second, 10*time.Millisecond)
	a.Shutdown()

	assert.False(t, firstDone.Load())
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "fast")
	assert.NotContains(t, string(raw), "slow")
}

func TestCommandAnnouncerInvalidArgsPanic(t *testing.T) {
	assert.Panics(t, func() { NewCommandAnnouncer("", discardLogger()) })
	assert.Panics(t, func() { NewCommandAnnouncer("espeak", nil) })
}
