package audio

import (
	"context"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"breathtrainer/internal/exercise"
	"breathtrainer/internal/safego"
)

// CommandPlayer cues phases by running a user-configured external
// command. Each cue invokes the command with the phase kind and the
// phase duration in seconds appended; session end invokes it with
// "done". The command is expected to exit quickly.
type CommandPlayer struct {
	name     string
	baseArgs []string
	logger   *log.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewCommandPlayer creates a CommandPlayer for the given command line.
func NewCommandPlayer(command string, logger *log.Logger) *CommandPlayer {
	if logger == nil {
		panic("CommandPlayer: logger cannot be nil")
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		panic("CommandPlayer: command cannot be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &CommandPlayer{
		name:     fields[0],
		baseArgs: fields[1:],
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// PhaseStarted runs the cue command for the phase kind.
func (p *CommandPlayer) PhaseStarted(kind exercise.PhaseKind, duration time.Duration) {
	seconds := strconv.FormatFloat(duration.Seconds(), 'g', -1, 64)
	p.run(kind.String(), seconds)
}

// SessionEnded runs the cue command with "done".
func (p *CommandPlayer) SessionEnded() {
	p.run("done")
}

// Resync is a no-op: this backend queues nothing, and in-flight
// commands are too short to be worth killing.
func (p *CommandPlayer) Resync() {}

// Shutdown kills in-flight cue commands and waits for them to be
// reaped. Safe to call multiple times.
func (p *CommandPlayer) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.logger.Printf("CommandPlayer: shutdown complete")
	})
}

func (p *CommandPlayer) run(extraArgs ...string) {
	args := make([]string, 0, len(p.baseArgs)+len(extraArgs))
	args = append(args, p.baseArgs...)
	args = append(args, extraArgs...)

	p.wg.Add(1)
	safego.Go(p.logger, func() {
		defer p.wg.Done()
		cmd := exec.CommandContext(p.ctx, p.name, args...)
		if err := cmd.Run(); err != nil && p.ctx.Err() == nil {
			p.logger.Printf("CommandPlayer: %s failed: %v", p.name, err)
		}
	})
}
