package voice

import (
	"context"
	"log"
	"os/exec"
	"strings"
	"sync"

	"breathtrainer/internal/safego"
)

// CommandAnnouncer speaks by running an external command (espeak-style)
// with the prompt text appended as the final argument. done fires when
// the process exits on its own; Stop kills it without firing done.
type CommandAnnouncer struct {
	name     string
	baseArgs []string
	logger   *log.Logger

	mu            sync.Mutex
	cancelCurrent context.CancelFunc

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewCommandAnnouncer creates a CommandAnnouncer for the given command
// line, e.g. "espeak -s 140".
func NewCommandAnnouncer(command string, logger *log.Logger) *CommandAnnouncer {
	if logger == nil {
		panic("CommandAnnouncer: logger cannot be nil")
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		panic("CommandAnnouncer: command cannot be empty")
	}
	return &CommandAnnouncer{
		name:     fields[0],
		baseArgs: fields[1:],
		logger:   logger,
	}
}

// Say interrupts any current utterance and speaks text.
func (a *CommandAnnouncer) Say(text string, done func()) {
	ctx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	if a.cancelCurrent != nil {
		a.cancelCurrent()
	}
	a.cancelCurrent = cancel
	a.mu.Unlock()

	args := make([]string, 0, len(a.baseArgs)+1)
	args = append(args, a.baseArgs...)
	args = append(args, text)

	a.wg.Add(1)
	safego.Go(a.logger, func() {
		defer a.wg.Done()
		defer cancel()

		cmd := exec.CommandContext(ctx, a.name, args...)
		err := cmd.Run()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			a.logger.Printf("CommandAnnouncer: %s failed: %v", a.name, err)
		}
		if done != nil {
			done()
		}
	})
}

// Stop kills the current utterance, if any.
func (a *CommandAnnouncer) Stop() {
	a.mu.Lock()
	cancel := a.cancelCurrent
	a.cancelCurrent = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown stops speech and waits for the process to be reaped. Safe to
// call multiple times.
func (a *CommandAnnouncer) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.Stop()
		a.wg.Wait()
		a.logger.Printf("CommandAnnouncer: shutdown complete")
	})
}
