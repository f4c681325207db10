package coach

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"breathtrainer/internal/audio"
	"breathtrainer/internal/engine"
	"breathtrainer/internal/exercise"
	"breathtrainer/internal/heartrate"
	"breathtrainer/internal/journal"
	"breathtrainer/internal/safego"
	"breathtrainer/internal/voice"
)

const (
	// sinkBuffer sizes the bridge channel between the engine loop and the
	// manager's event loop. Deep enough that the engine never blocks on a
	// briefly busy manager.
	sinkBuffer = 256

	// pausedRefreshInterval is how often the manager republishes state
	// while paused. The engine emits no ticks during a pause, so without
	// this the paused screen would freeze on the last running snapshot.
	pausedRefreshInterval = 250 * time.Millisecond

	// shutdownJournalTimeout bounds how long Shutdown waits for the final
	// session record to reach the journal.
	shutdownJournalTimeout = 3 * time.Second
)

// sinkEventKind discriminates bridged engine callbacks
type sinkEventKind int

const (
	evPhaseStart sinkEventKind = iota
	evTick
	evPhaseEnd
	evDone
)

// sinkEvent is one engine callback carried from the session loop to the
// manager's event loop. owner tags which run produced it so events from
// a replaced session are dropped instead of corrupting the new one.
type sinkEvent struct {
	kind  sinkEventKind
	phase exercise.Phase
	prev  *exercise.Phase
	tick  engine.Tick
	owner *activeRun
}

// sessionSink adapts the engine's EventSink to a channel send. Sends
// block rather than drop: event order is the engine's contract and the
// manager must see every PhaseStart and SequenceDone.
type sessionSink struct {
	ch    chan<- sinkEvent
	owner *activeRun
}

func (s *sessionSink) PhaseStart(phase exercise.Phase, prev *exercise.Phase) {
	s.ch <- sinkEvent{kind: evPhaseStart, phase: phase, prev: prev, owner: s.owner}
}

func (s *sessionSink) TickUpdate(t engine.Tick) {
	s.ch <- sinkEvent{kind: evTick, tick: t, owner: s.owner}
}

func (s *sessionSink) PhaseEnd(phase exercise.Phase) {
	s.ch <- sinkEvent{kind: evPhaseEnd, phase: phase, owner: s.owner}
}

func (s *sessionSink) SequenceDone(engine.Completion) {
	s.ch <- sinkEvent{kind: evDone, owner: s.owner}
}

// activeRun is one engine session plus the display and heart rate
// accounting the manager keeps for it. All fields except session and
// doneSeen are protected by the manager's mu.
type activeRun struct {
	session *engine.Session
	def     *exercise.Definition
	seq     exercise.Sequence

	// doneSeen closes once the run's final record reached the journal.
	// StartExercise and Shutdown wait on it before discarding the run.
	doneSeen   chan struct{}
	doneClosed bool

	hrSum   int
	hrCount int

	phase        exercise.Phase
	phaseIndex   int
	cycleIndex   int
	elapsed      time.Duration
	remaining    time.Duration
	progress     float64
	openEnded    bool
	contractions int
}

// SessionManager owns engine sessions on behalf of the UI. Engine sink
// callbacks are bridged onto one event loop goroutine, which updates
// the UIModel, fires audio and voice cues, accumulates heart rate, and
// writes the journal when a run ends. It also reacts to suspend gaps by
// resyncing the audio pipeline and the heart rate source.
type SessionManager struct {
	model     *UIModel
	cues      audio.CuePlayer
	announcer voice.Announcer
	store     *journal.Store
	hr        heartrate.Source
	suspend   *engine.SuspendWatcher
	opts      engine.Options
	logger    *log.Logger

	mu           sync.RWMutex
	run          *activeRun
	personalBest time.Duration
	best         *PersonalBestStore

	sinkChan  chan sinkEvent
	hrChan    chan int
	gapChan   chan time.Duration
	unsubHR   func()
	unsubGaps func()

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewSessionManagerArg holds the arguments for creating a SessionManager
type NewSessionManagerArg struct {
	Model        *UIModel
	Cues         audio.CuePlayer
	Announcer    voice.Announcer
	Store        *journal.Store
	HeartRate    heartrate.Source
	Suspend      *engine.SuspendWatcher
	PersonalBest time.Duration
	Best         *PersonalBestStore // optional, may be nil
	Options      engine.Options
	Logger       *log.Logger
}

// NewSessionManager creates a SessionManager. It takes ownership of
// Cues and Announcer and shuts them down with itself; the heart rate
// source and suspend watcher stay owned by the caller.
func NewSessionManager(arg NewSessionManagerArg) *SessionManager {
	if arg.Model == nil {
		panic("SessionManager: model cannot be nil")
	}
	if arg.Cues == nil {
		panic("SessionManager: cues cannot be nil")
	}
	if arg.Announcer == nil {
		panic("SessionManager: announcer cannot be nil")
	}
	if arg.Store == nil {
		panic("SessionManager: store cannot be nil")
	}
	if arg.HeartRate == nil {
		panic("SessionManager: heart rate source cannot be nil")
	}
	if arg.Suspend == nil {
		panic("SessionManager: suspend watcher cannot be nil")
	}
	if arg.Logger == nil {
		panic("SessionManager: logger cannot be nil")
	}

	personalBest := arg.PersonalBest
	if arg.Best != nil {
		// The configured value is a floor; achieved holds raise it.
		if stored := arg.Best.Best(); stored > personalBest {
			personalBest = stored
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &SessionManager{
		model:        arg.Model,
		cues:         arg.Cues,
		announcer:    arg.Announcer,
		store:        arg.Store,
		hr:           arg.HeartRate,
		suspend:      arg.Suspend,
		opts:         arg.Options,
		personalBest: personalBest,
		best:         arg.Best,
		logger:       arg.Logger,
		sinkChan:     make(chan sinkEvent, sinkBuffer),
		hrChan:       make(chan int, 8),
		gapChan:      make(chan time.Duration, 4),
		ctx:          ctx,
		cancel:       cancel,
	}

	m.unsubHR = m.hr.ListenToReadings(m.hrChan)
	m.unsubGaps = m.suspend.ListenToGaps(m.gapChan)

	m.wg.Add(1)
	safego.Go(m.logger, func() { m.runEventLoop() })

	return m
}

// SetPersonalBest updates the base hold used to resolve ratio-form
// apnea tables. Applies to sessions started afterwards.
func (m *SessionManager) SetPersonalBest(best time.Duration) {
	m.mu.Lock()
	m.personalBest = best
	m.mu.Unlock()
	m.logger.Printf("SessionManager: personal best set to %s", best)
	if m.best != nil {
		m.best.SetBest(best)
	}
}

// GetPersonalBest returns the current personal best hold
func (m *SessionManager) GetPersonalBest() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.personalBest
}

// StartExercise starts a session for the given definition. If a
// previous session finished, its journal record is flushed before the
// run is replaced. Returns an error while a session is still live.
func (m *SessionManager) StartExercise(def exercise.Definition) error {
	m.mu.RLock()
	old := m.run
	m.mu.RUnlock()

	if old != nil {
		status := old.session.Status()
		if !status.Terminal() {
			err := fmt.Errorf("cannot start %q: a session is already %s", def.Name, status)
			m.logger.Printf("SessionManager: %v", err)
			return err
		}
		// Let the event loop journal the finished run before replacing it
		select {
		case <-old.doneSeen:
		case <-m.ctx.Done():
			return m.ctx.Err()
		}
		old.session.Shutdown()
	}

	m.mu.Lock()
	if m.run != old {
		m.mu.Unlock()
		err := fmt.Errorf("cannot start %q: another start raced", def.Name)
		m.logger.Printf("SessionManager: %v", err)
		return err
	}
	resolved := def.WithPersonalBest(m.personalBest)
	run := &activeRun{def: &resolved, doneSeen: make(chan struct{})}
	session, err := engine.Start(resolved, &sessionSink{ch: m.sinkChan, owner: run}, m.logger, m.opts)
	if err != nil {
		m.mu.Unlock()
		m.logger.Printf("SessionManager: could not start %q: %v", def.Name, err)
		return err
	}
	run.session = session
	run.seq = session.Sequence()
	m.run = run
	m.mu.Unlock()

	m.logger.Printf("SessionManager: started %q (%d phases x %d cycles)",
		resolved.Name, len(run.seq.Phases), run.seq.Cycles)
	return nil
}

// TogglePause pauses a running session or resumes a paused one
func (m *SessionManager) TogglePause() {
	m.mu.RLock()
	run := m.run
	m.mu.RUnlock()

	if run == nil {
		m.logger.Printf("SessionManager: no session to pause - start one in Exercise Selection mode (press 1)")
		return
	}

	switch run.session.Status() {
	case engine.StatusRunning:
		run.session.Pause()
		m.announcer.Stop()
		m.logger.Printf("SessionManager: session paused")
	case engine.StatusPaused:
		run.session.Resume()
		m.logger.Printf("SessionManager: session resumed")
	default:
		m.logger.Printf("SessionManager: session already finished - press r to restart")
		return
	}

	// The engine applies the command asynchronously; the paused refresh
	// ticker repairs any stale status within one interval.
	m.pushState()
}

// Stop ends the current session early. The stopped run is journaled
// like a completed one, marked stopped.
func (m *SessionManager) Stop() {
	m.mu.RLock()
	run := m.run
	m.mu.RUnlock()

	if run == nil {
		m.logger.Printf("SessionManager: no session to stop")
		return
	}
	if run.session.Status().Terminal() {
		m.logger.Printf("SessionManager: session already finished")
		return
	}

	m.logger.Printf("SessionManager: stopping session")
	run.session.Stop()
}

// Restart replays the current exercise from the first phase. A live
// session is reset in place; a finished one is replaced with a fresh
// run so its journal record keeps its own accounting.
func (m *SessionManager) Restart() {
	m.mu.RLock()
	run := m.run
	m.mu.RUnlock()

	if run == nil {
		m.logger.Printf("SessionManager: no session to restart")
		return
	}

	if run.session.Status().Terminal() {
		def := *run.def
		m.logger.Printf("SessionManager: restarting %q as a new session", def.Name)
		if err := m.StartExercise(def); err != nil {
			return
		}
		return
	}

	m.logger.Printf("SessionManager: restarting %q", run.def.Name)
	m.announcer.Stop()
	run.session.Reset()
}

// MarkContraction records an involuntary contraction during an
// open-ended hold. Ignored outside one.
func (m *SessionManager) MarkContraction() {
	m.mu.RLock()
	run := m.run
	openEnded := run != nil && run.openEnded
	m.mu.RUnlock()

	if run == nil || !openEnded || run.session.Status() != engine.StatusRunning {
		return
	}

	run.session.MarkContraction()

	// The engine is the authority on what counts; this counter only
	// feeds the live display and resets on every phase start.
	m.mu.Lock()
	var state SessionState
	counted := false
	if m.run == run && run.openEnded {
		run.contractions++
		state = m.buildState()
		counted = true
	}
	m.mu.Unlock()

	if counted {
		m.model.SetSessionState(state)
		m.logger.Printf("SessionManager: contraction marked (%d this hold)", state.Contractions)
	}
}

// CompleteHold ends the current open-ended hold normally. Ignored
// outside one.
func (m *SessionManager) CompleteHold() {
	m.mu.RLock()
	run := m.run
	openEnded := run != nil && run.openEnded
	m.mu.RUnlock()

	if run == nil || !openEnded {
		return
	}

	m.logger.Printf("SessionManager: hold completed by user")
	run.session.CompleteHold()
}

// State returns the current session state snapshot
func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buildState()
}

// Shutdown stops the current session, waits for its journal record,
// and releases all resources. Safe to call multiple times.
func (m *SessionManager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.logger.Printf("SessionManager: shutting down")

		m.mu.RLock()
		run := m.run
		m.mu.RUnlock()

		if run != nil {
			if !run.session.Status().Terminal() {
				run.session.Stop()
			}
			select {
			case <-run.doneSeen:
			case <-time.After(shutdownJournalTimeout):
				m.logger.Printf("SessionManager: timed out waiting for the final journal record")
			}
			run.session.Shutdown()
		}

		m.unsubHR()
		m.unsubGaps()
		m.cancel()
		m.wg.Wait()

		m.announcer.Shutdown()
		m.cues.Shutdown()
		m.logger.Printf("SessionManager: shutdown complete")
	})
}

// runEventLoop serializes engine events, heart rate readings and
// suspend gaps onto one goroutine.
func (m *SessionManager) runEventLoop() {
	defer m.wg.Done()

	refresh := time.NewTicker(pausedRefreshInterval)
	defer refresh.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case ev := <-m.sinkChan:
			m.handleSinkEvent(ev)
		case bpm := <-m.hrChan:
			m.handleReading(bpm)
		case gap := <-m.gapChan:
			m.handleGap(gap)
		case <-refresh.C:
			m.refreshPausedState()
		}
	}
}

func (m *SessionManager) handleSinkEvent(ev sinkEvent) {
	switch ev.kind {
	case evPhaseStart:
		m.handlePhaseStart(ev)
	case evTick:
		m.handleTick(ev)
	case evPhaseEnd:
		// Display advances on the following PhaseStart
	case evDone:
		m.handleDone(ev)
	}
}

func (m *SessionManager) handlePhaseStart(ev sinkEvent) {
	m.mu.Lock()
	run := m.run
	if run == nil || ev.owner != run {
		m.mu.Unlock()
		return
	}

	if ev.prev == nil {
		run.phaseIndex = 0
		run.cycleIndex = 0
	} else {
		run.phaseIndex++
		if run.phaseIndex >= len(run.seq.Phases) {
			run.phaseIndex = 0
			run.cycleIndex++
		}
	}
	run.phase = ev.phase
	run.contractions = 0
	run.elapsed = 0
	run.remaining = ev.phase.Duration
	run.progress = 0
	run.openEnded = ev.phase.Kind == exercise.KindOpenEnded
	state := m.buildState()
	m.mu.Unlock()

	// External calls after releasing lock
	m.cues.PhaseStarted(ev.phase.Kind, ev.phase.Duration)
	if ev.phase.Kind == exercise.KindGuided && ev.phase.Text != "" {
		m.announcer.Say(ev.phase.Text, func() { m.speechFinished(run) })
	}
	m.model.SetSessionState(state)
	m.logger.Printf("SessionManager: phase %q (%s) started", ev.phase.Label, ev.phase.Kind)
}

func (m *SessionManager) handleTick(ev sinkEvent) {
	m.mu.Lock()
	run := m.run
	if run == nil || ev.owner != run {
		m.mu.Unlock()
		return
	}

	run.phaseIndex = ev.tick.PhaseIndex
	run.cycleIndex = ev.tick.CycleIndex
	run.elapsed = ev.tick.Elapsed
	run.remaining = ev.tick.Remaining
	run.progress = ev.tick.Progress
	run.openEnded = ev.tick.OpenEnded
	state := m.buildState()
	m.mu.Unlock()

	m.model.SetSessionState(state)
}

func (m *SessionManager) handleDone(ev sinkEvent) {
	m.mu.Lock()
	run := m.run
	if run == nil || ev.owner != run {
		m.mu.Unlock()
		return
	}

	res := run.session.Result()
	if !res.Status.Terminal() {
		// A restart raced the completion; the run is live again and
		// will produce its own record later.
		m.mu.Unlock()
		m.logger.Printf("SessionManager: completion superseded by a restart, not journaled")
		return
	}

	avg := 0
	if run.hrCount > 0 {
		avg = run.hrSum / run.hrCount
	}
	run.hrSum, run.hrCount = 0, 0
	state := m.buildState()
	m.mu.Unlock()

	rec := journal.FromResult(res, avg)
	if err := m.store.Append(rec); err != nil {
		m.logger.Printf("SessionManager: could not journal session: %v", err)
	}
	m.model.SetJournal(m.store.List())
	m.cues.SessionEnded()
	m.announcer.Stop()
	m.model.SetSessionState(state)
	m.logger.Printf("SessionManager: session %q ended (%s, %d phases)",
		res.Exercise, res.Completion, res.PhasesDone)

	// Holds achieved in any run raise the personal best, even on stop
	if best := longestHold(res.Holds); best > m.GetPersonalBest() {
		m.logger.Printf("SessionManager: new personal best hold %s", best.Round(100*time.Millisecond))
		m.SetPersonalBest(best)
	}

	// Release waiters only after the record is in the journal
	m.mu.Lock()
	if !run.doneClosed {
		run.doneClosed = true
		close(run.doneSeen)
	}
	m.mu.Unlock()
}

// longestHold returns the longest achieved hold of a run, or zero
func longestHold(holds []engine.HoldResult) time.Duration {
	var best time.Duration
	for _, h := range holds {
		if h.Achieved > best {
			best = h.Achieved
		}
	}
	return best
}

// handleReading accumulates readings for the session average. Readings
// outside a running session only feed the live display, which the
// UIModel handles on its own subscription.
func (m *SessionManager) handleReading(bpm int) {
	m.mu.Lock()
	if m.run != nil && m.run.session.Status() == engine.StatusRunning {
		m.run.hrSum += bpm
		m.run.hrCount++
	}
	m.mu.Unlock()
}

func (m *SessionManager) handleGap(gap time.Duration) {
	m.logger.Printf("SessionManager: system suspend of %s detected, resyncing audio and sensors",
		gap.Round(time.Second))
	m.cues.Resync()
	m.hr.Resync()
	m.pushState()
}

// refreshPausedState republishes the snapshot while paused, since no
// ticks arrive to do it.
func (m *SessionManager) refreshPausedState() {
	m.mu.RLock()
	run := m.run
	var state SessionState
	paused := false
	if run != nil && run.session.Status() == engine.StatusPaused {
		paused = true
		state = m.buildState()
	}
	m.mu.RUnlock()

	if paused {
		m.model.SetSessionState(state)
	}
}

func (m *SessionManager) pushState() {
	m.mu.RLock()
	state := m.buildState()
	m.mu.RUnlock()
	m.model.SetSessionState(state)
}

// speechFinished is handed to the announcer as the done callback for
// guided phases. The announcer may call it from any goroutine, and may
// call it after the run was replaced.
func (m *SessionManager) speechFinished(run *activeRun) {
	m.mu.RLock()
	current := m.run == run
	m.mu.RUnlock()
	if current {
		run.session.SpeechFinished()
	}
}

// buildState computes the current session state snapshot.
// MUST be called with mu held (at least read lock).
func (m *SessionManager) buildState() SessionState {
	run := m.run
	if run == nil {
		return SessionState{Status: engine.StatusIdle}
	}
	return SessionState{
		Status:         run.session.Status(),
		Exercise:       run.def,
		Phase:          run.phase,
		PhaseIndex:     run.phaseIndex,
		TotalPhases:    len(run.seq.Phases),
		CycleIndex:     run.cycleIndex,
		TotalCycles:    run.seq.Cycles,
		PhaseElapsed:   run.elapsed,
		PhaseRemaining: run.remaining,
		Progress:       run.progress,
		OpenEnded:      run.openEnded,
		Contractions:   run.contractions,
	}
}
