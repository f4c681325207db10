package engine

import (
	"log"
	"sync"
	"time"

	"breathtrainer/internal/exercise"
	"breathtrainer/internal/safego"
)

// Status is the lifecycle state of a session run.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusCompleted
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has ended.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped
}

type sessionCommand int

const (
	cmdPause sessionCommand = iota
	cmdResume
	cmdStop
	cmdReset
	cmdMarkContraction
	cmdCompleteHold
	cmdSpeechFinished
)

// Defaults for Options fields left at their zero value.
const (
	DefaultPollInterval      = 100 * time.Millisecond
	DefaultSpeechRate        = 15.0
	DefaultSpeechFloor       = 2 * time.Second
	DefaultContractionWindow = 10 * time.Second
)

// Options tunes a session. Zero values take the defaults above; a nil
// Clock means SystemClock.
type Options struct {
	Clock        Clock
	PollInterval time.Duration
	// SpeechRate is the characters-per-second figure used to bound the
	// speaking stage of guided phases when the announcer never signals.
	SpeechRate float64
	// SpeechFloor is the minimum speaking allowance regardless of text
	// length.
	SpeechFloor time.Duration
	// ContractionWindow is how long an open-ended hold continues past
	// the first marked contraction before it ends on its own.
	ContractionWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.SpeechRate <= 0 {
		o.SpeechRate = DefaultSpeechRate
	}
	if o.SpeechFloor <= 0 {
		o.SpeechFloor = DefaultSpeechFloor
	}
	if o.ContractionWindow <= 0 {
		o.ContractionWindow = DefaultContractionWindow
	}
	return o
}

// HoldResult records one finished open-ended hold phase.
type HoldResult struct {
	PhaseIndex   int
	Achieved     time.Duration
	Contractions []time.Duration // offsets from the hold start
}

// Result snapshots run accounting for journaling. EndedAt stays zero
// until the run reaches a terminal status.
type Result struct {
	Exercise   string
	Family     exercise.Family
	StartedAt  time.Time
	EndedAt    time.Time
	Status     Status
	Completion Completion
	PhasesDone int
	CyclesDone int
	Holds      []HoldResult
}

// guided phases run in two stages: a bounded wait for the announcer,
// then the fixed pause the definition asks for.
type guidedStage int

const (
	stageNone guidedStage = iota
	stageSpeaking
	stagePausing
)

// effects lists sink calls computed under the lock, delivered after it
// is released, in the order the fields are declared.
type effects struct {
	tick       *Tick
	endedPhase *exercise.Phase
	startPhase *exercise.Phase
	prevPhase  *exercise.Phase
	completion *Completion
}

// Session plays one expanded exercise sequence. It owns a single loop
// goroutine; every state change and every sink callback happens there,
// so the sink sees a strictly ordered event stream. Public control
// methods validate against a snapshot and hand the work to the loop over
// a command channel; they never block on playback and never return
// errors once the session exists.
//
// Sink callbacks must return promptly and must not invoke Session
// methods synchronously; bridge through a channel instead.
type Session struct {
	def    exercise.Definition
	seq    exercise.Sequence
	sink   EventSink
	clock  Clock
	opts   Options
	logger *log.Logger

	mu           sync.RWMutex
	status       Status
	phaseIdx     int
	cycleIdx     int
	timer        PhaseTimer
	phaseBase    time.Duration // finished sub-run time inside the current guided phase
	stage        guidedStage
	holdMarks    []time.Duration
	holdDeadline time.Duration // zero until the first contraction arms it
	holds        []HoldResult
	phasesDone   int
	startedAt    time.Time
	endedAt      time.Time
	completion   Completion
	announced    bool // SequenceDone delivered for this run

	cmdChan      chan sessionCommand
	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// Start expands def and begins playing it immediately. The first
// PhaseStart arrives asynchronously from the session loop. Definition
// problems surface here, usually as a *exercise.DefinitionError; once a
// session exists its controls never fail.
func Start(def exercise.Definition, sink EventSink, logger *log.Logger, opts Options) (*Session, error) {
	if sink == nil {
		panic("Session: sink cannot be nil")
	}
	if logger == nil {
		panic("Session: logger cannot be nil")
	}
	seq, err := def.Expand()
	if err != nil {
		return nil, err
	}
	o := opts.withDefaults()
	s := &Session{
		def:       def,
		seq:       seq,
		sink:      sink,
		clock:     o.Clock,
		opts:      o,
		logger:    logger,
		status:    StatusRunning,
		startedAt: o.Clock.Now(),
		cmdChan:   make(chan sessionCommand, 1),
		doneChan:  make(chan struct{}),
	}
	s.wg.Add(1)
	safego.Go(logger, func() {
		defer s.wg.Done()
		s.run()
	})
	return s, nil
}

// run is the session loop. The ticker is only a prompt to look at the
// clock; it keeps firing through pauses so a resume is picked up on the
// next beat without rearming anything.
func (s *Session) run() {
	ticker := s.clock.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.mu.Lock()
	var fx effects
	s.beginPhaseLocked(s.clock.Now(), nil, &fx)
	s.mu.Unlock()
	s.deliver(fx)

	for {
		select {
		case <-s.doneChan:
			return
		case cmd := <-s.cmdChan:
			s.handleCommand(cmd)
		case <-ticker.C():
			s.handleTick()
		}
	}
}

func (s *Session) handleTick() {
	s.mu.Lock()
	var fx effects
	if s.status == StatusRunning {
		fx = s.observeLocked(s.clock.Now())
	}
	s.mu.Unlock()
	s.deliver(fx)
}

// observeLocked reads the timer once and works out everything this poll
// owes the sink: at most one tick, plus any phase boundary it exposed.
func (s *Session) observeLocked(now time.Time) effects {
	phase := s.seq.Phases[s.phaseIdx]
	out := s.timer.Observe(now)
	if !out.Updated {
		return effects{}
	}
	tick := s.tickLocked(phase, out)
	fx := effects{tick: &tick}

	if phase.Kind == exercise.KindOpenEnded {
		if s.holdDeadline > 0 && out.Elapsed >= s.holdDeadline {
			s.recordHoldLocked(out.Elapsed)
			s.timer.Cancel()
			s.advanceLocked(now, &fx)
		}
		return fx
	}
	if !out.Done {
		return fx
	}
	if phase.Kind == exercise.KindGuided && s.stage == stageSpeaking {
		// The announcer never signalled inside its allowance; move to the
		// fixed pause anyway so a broken voice backend cannot hang a run.
		s.phaseBase += out.Elapsed
		s.stage = stagePausing
		s.timer.Start(now, phase.Duration)
		return fx
	}
	s.advanceLocked(now, &fx)
	return fx
}

// tickLocked builds the sink snapshot for one timer outcome.
func (s *Session) tickLocked(phase exercise.Phase, out TickOutcome) Tick {
	tick := Tick{
		PhaseIndex: s.phaseIdx,
		CycleIndex: s.cycleIdx,
		Elapsed:    s.phaseBase + out.Elapsed,
		Remaining:  out.Remaining,
		OpenEnded:  phase.Kind == exercise.KindOpenEnded,
	}
	if !tick.OpenEnded {
		if run := out.Elapsed + out.Remaining; run > 0 {
			tick.Progress = float64(out.Elapsed) / float64(run)
		} else {
			tick.Progress = 1
		}
	}
	return tick
}

// advanceLocked is the one place playback moves forward: it closes the
// current phase and either begins the next one or completes the run.
func (s *Session) advanceLocked(now time.Time, fx *effects) {
	if s.status != StatusRunning {
		s.logger.Printf("Session: %v", &TransitionError{Op: "advance", Status: s.status})
		return
	}
	ended := s.seq.Phases[s.phaseIdx]
	fx.endedPhase = &ended
	s.phasesDone++

	next := s.phaseIdx + 1
	cycle := s.cycleIdx
	if next == len(s.seq.Phases) {
		next = 0
		cycle++
	}
	if cycle == s.seq.Cycles {
		s.completeLocked(now, CompletionNatural, fx)
		return
	}
	s.phaseIdx = next
	s.cycleIdx = cycle
	s.beginPhaseLocked(now, &ended, fx)
}

// beginPhaseLocked arms the timer for the phase at the current index and
// queues its PhaseStart.
func (s *Session) beginPhaseLocked(now time.Time, prev *exercise.Phase, fx *effects) {
	phase := s.seq.Phases[s.phaseIdx]
	s.phaseBase = 0
	s.stage = stageNone
	s.holdMarks = nil
	s.holdDeadline = 0
	switch phase.Kind {
	case exercise.KindGuided:
		s.stage = stageSpeaking
		s.timer.Start(now, s.speechAllowance(phase.Text))
	case exercise.KindOpenEnded:
		s.timer.StartOpenEnded(now)
	default:
		s.timer.Start(now, phase.Duration)
	}
	fx.startPhase = &phase
	fx.prevPhase = prev
}

func (s *Session) completeLocked(now time.Time, c Completion, fx *effects) {
	s.timer.Cancel()
	s.endedAt = now
	s.completion = c
	if c == CompletionNatural {
		s.status = StatusCompleted
	} else {
		s.status = StatusStopped
	}
	if !s.announced {
		s.announced = true
		fx.completion = &c
	}
}

func (s *Session) recordHoldLocked(achieved time.Duration) {
	marks := make([]time.Duration, len(s.holdMarks))
	copy(marks, s.holdMarks)
	s.holds = append(s.holds, HoldResult{
		PhaseIndex:   s.phaseIdx,
		Achieved:     achieved,
		Contractions: marks,
	})
}

// speechAllowance bounds the speaking stage of a guided phase. The
// announcer is expected to signal well before this runs out.
func (s *Session) speechAllowance(text string) time.Duration {
	d := time.Duration(float64(len(text)) / s.opts.SpeechRate * float64(time.Second))
	if d < s.opts.SpeechFloor {
		d = s.opts.SpeechFloor
	}
	return d
}

func (s *Session) handleCommand(cmd sessionCommand) {
	s.mu.Lock()
	now := s.clock.Now()
	var fx effects
	switch cmd {
	case cmdPause:
		if s.status == StatusRunning {
			s.timer.Pause(now)
			s.status = StatusPaused
		}
	case cmdResume:
		if s.status == StatusPaused {
			s.timer.Resume(now)
			s.status = StatusRunning
		}
	case cmdStop:
		if !s.status.Terminal() {
			// The interrupted phase ends silently; only the run-level
			// event fires.
			s.completeLocked(now, CompletionStopped, &fx)
		}
	case cmdReset:
		s.resetLocked(now, &fx)
	case cmdMarkContraction:
		s.markContractionLocked(now)
	case cmdCompleteHold:
		s.completeHoldLocked(now, &fx)
	case cmdSpeechFinished:
		s.speechFinishedLocked(now)
	}
	s.mu.Unlock()
	s.deliver(fx)
}

func (s *Session) resetLocked(now time.Time, fx *effects) {
	s.timer.Cancel()
	s.status = StatusRunning
	s.phaseIdx = 0
	s.cycleIdx = 0
	s.phasesDone = 0
	s.holds = nil
	s.startedAt = now
	s.endedAt = time.Time{}
	s.announced = false
	s.beginPhaseLocked(now, nil, fx)
}

func (s *Session) markContractionLocked(now time.Time) {
	if s.status != StatusRunning || !s.timer.OpenEnded() {
		return
	}
	at := s.timer.Elapsed(now)
	s.holdMarks = append(s.holdMarks, at)
	if s.holdDeadline == 0 {
		s.holdDeadline = at + s.opts.ContractionWindow
	}
}

func (s *Session) completeHoldLocked(now time.Time, fx *effects) {
	if s.status != StatusRunning || !s.timer.OpenEnded() {
		return
	}
	s.recordHoldLocked(s.timer.Elapsed(now))
	s.timer.Cancel()
	s.advanceLocked(now, fx)
}

func (s *Session) speechFinishedLocked(now time.Time) {
	if s.status != StatusRunning || s.stage != stageSpeaking {
		return
	}
	phase := s.seq.Phases[s.phaseIdx]
	s.phaseBase += s.timer.Elapsed(now)
	s.timer.Cancel()
	s.stage = stagePausing
	s.timer.Start(now, phase.Duration)
}

func (s *Session) deliver(fx effects) {
	if fx.tick != nil {
		s.sink.TickUpdate(*fx.tick)
	}
	if fx.endedPhase != nil {
		s.sink.PhaseEnd(*fx.endedPhase)
	}
	if fx.startPhase != nil {
		s.sink.PhaseStart(*fx.startPhase, fx.prevPhase)
	}
	if fx.completion != nil {
		s.sink.SequenceDone(*fx.completion)
	}
}

// send hands a command to the loop, giving up if the session was shut
// down underneath us.
func (s *Session) send(cmd sessionCommand) {
	select {
	case s.cmdChan <- cmd:
	case <-s.doneChan:
	}
}

// Pause freezes elapsed time. The loop keeps polling; ticks simply stop
// updating until Resume. No-op unless the session is running.
func (s *Session) Pause() {
	s.mu.RLock()
	ok := s.status == StatusRunning
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.send(cmdPause)
}

// Resume lets elapsed time grow again. The paused span is excluded from
// phase accounting. No-op unless the session is paused.
func (s *Session) Resume() {
	s.mu.RLock()
	ok := s.status == StatusPaused
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.send(cmdResume)
}

// Stop ends the run early. SequenceDone fires exactly once per run no
// matter how many times Stop is called or how it races completion.
func (s *Session) Stop() {
	s.mu.RLock()
	ok := !s.status.Terminal()
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.send(cmdStop)
}

// Reset discards playback state and restarts the same definition from
// the first phase. Works from any state, including after completion.
func (s *Session) Reset() {
	s.send(cmdReset)
}

// MarkContraction timestamps an involuntary contraction during an
// open-ended hold, relative to the hold start. The first mark schedules
// the hold to end after the configured window. No-op outside a live
// hold.
func (s *Session) MarkContraction() {
	s.mu.RLock()
	ok := s.status == StatusRunning
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.send(cmdMarkContraction)
}

// CompleteHold ends a live open-ended hold normally and moves on. No-op
// outside a live hold.
func (s *Session) CompleteHold() {
	s.mu.RLock()
	ok := s.status == StatusRunning
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.send(cmdCompleteHold)
}

// SpeechFinished tells a guided phase the announcer is done, cutting the
// speaking allowance short and starting the fixed pause. Late or stray
// signals are ignored.
func (s *Session) SpeechFinished() {
	s.mu.RLock()
	ok := s.status == StatusRunning
	s.mu.RUnlock()
	if !ok {
		return
	}
	s.send(cmdSpeechFinished)
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Definition returns the definition this session is playing.
func (s *Session) Definition() exercise.Definition {
	return s.def
}

// Sequence returns the expanded phase list. Immutable after Start.
func (s *Session) Sequence() exercise.Sequence {
	return s.seq
}

// Result snapshots run accounting for journaling. Valid at any time.
func (s *Session) Result() Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	holds := make([]HoldResult, len(s.holds))
	copy(holds, s.holds)
	return Result{
		Exercise:   s.def.Name,
		Family:     s.def.Family,
		StartedAt:  s.startedAt,
		EndedAt:    s.endedAt,
		Status:     s.status,
		Completion: s.completion,
		PhasesDone: s.phasesDone,
		CyclesDone: s.phasesDone / len(s.seq.Phases),
		Holds:      holds,
	}
}

// Shutdown stops the loop goroutine and waits for it to exit. It emits
// nothing: an unfinished run simply stops being driven, so callers who
// want the stopped event must Stop first. Must not be called from a
// sink callback.
func (s *Session) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.doneChan)
		s.wg.Wait()
	})
}
