package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Engine drives line-oriented request/response exchanges with a modem-style
// device over a Transport. It reassembles the unaligned incoming byte stream
// into lines, matches them against the active script's response and abort
// tables and the engine's unsolicited table, and runs submitted scripts step
// by step.
//
// All I/O is handled by a single processing goroutine per attached
// transport: a reader goroutine delivers raw chunks over a channel, and the
// processing goroutine owns the line assembler, the script runner and every
// callback. Callbacks therefore never race each other, are invoked in
// recognition order, and must not block or call Run on the same engine.
type Engine struct {
	config Config
	log    *slog.Logger

	// mu guards sess across Attach/Release and the submit paths.
	mu   sync.RWMutex
	sess *session

	busy      atomic.Bool
	closed    atomic.Bool
	overflows atomic.Uint64

	// Fields below are owned by the processing goroutine.
	asm         *assembler
	snd         sender
	sm          *runnerFSM
	active      *scriptRun
	stepIdx     int
	stepAdvance bool
	stepGen     uint64
	scriptGen   uint64
	stepTimer   *time.Timer
	scriptTimer *time.Timer
}

// session holds the channels of one attach/release cycle.
type session struct {
	transport Transport
	submits   chan *scriptRun
	abortReqs chan struct{}
	chunks    chan []byte
	readErrs  chan error
	timers    chan timerEvent
	detach    chan struct{}
	done      chan struct{}
}

type scriptRun struct {
	script *Script
	done   chan Result
}

type timerEvent struct {
	gen     uint64
	overall bool
}

// New creates an Engine from the given configuration. Defaults are applied
// to unset fields; see Config.
func New(config Config) (*Engine, error) {
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config: config,
		log:    config.Logger,
		sm:     newRunnerFSM(),
	}, nil
}

// Attach binds the engine to a transport and starts processing its byte
// stream. An engine is attached to at most one transport at a time.
//
// The engine does not take ownership of the transport: Release stops the
// processing goroutines, but the caller closes the transport itself (which
// also unblocks a reader parked in Read).
func (e *Engine) Attach(transport Transport) error {
	if e.closed.Load() {
		return ErrAlreadyClosed
	}
	if transport == nil {
		return errors.New("transport is nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess != nil {
		return ErrAlreadyAttached
	}

	sess := &session{
		transport: transport,
		submits:   make(chan *scriptRun, 1),
		abortReqs: make(chan struct{}, 1),
		chunks:    make(chan []byte, 8),
		readErrs:  make(chan error, 1),
		timers:    make(chan timerEvent, 4),
		detach:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	e.sess = sess
	e.asm = newAssembler(e.config.ReceiveBufferSize, e.config.Delimiter, e.config.FilterBytes)
	e.snd.reset()

	go e.readLoop(sess)
	go e.loop(sess)
	return nil
}

// Release detaches the engine from its transport. An active script is
// completed with ResultAbort before Release returns. Release is a no-op on a
// detached engine.
func (e *Engine) Release() {
	e.mu.Lock()
	sess := e.sess
	e.sess = nil
	e.mu.Unlock()
	if sess == nil {
		return
	}
	close(sess.detach)
	<-sess.done

	// A submission can slip into the buffered channel in the instant the
	// processing goroutine exits; complete it here so its outcome is still
	// delivered exactly once.
	select {
	case run := <-sess.submits:
		e.busy.Store(false)
		if run.script.Callback != nil {
			run.script.Callback(e, ResultAbort)
		}
		run.done <- ResultAbort
	default:
	}
}

// Close releases the transport and permanently shuts the engine down.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrAlreadyClosed
	}
	e.Release()
	return nil
}

// Submit starts a script asynchronously. It returns ErrBusy when a script is
// already running (submissions are not queued), ErrInvalidScript when the
// script is malformed, and ErrNotAttached when no transport is bound. The
// outcome is delivered via the script's callback.
func (e *Engine) Submit(script *Script) error {
	_, err := e.submit(script)
	return err
}

// Run starts a script and blocks until it completes, returning its Result.
// When ctx expires first, the script is aborted and ctx's error is returned
// alongside the abort result.
//
// Run must not be called from a match or script callback; those run on the
// processing goroutine that Run waits for.
func (e *Engine) Run(ctx context.Context, script *Script) (Result, error) {
	run, err := e.submit(script)
	if err != nil {
		return 0, err
	}
	select {
	case result := <-run.done:
		return result, nil
	case <-ctx.Done():
		e.Abort()
		result := <-run.done
		return result, ctx.Err()
	}
}

// Abort terminates the active script, completing it with ResultAbort. It is
// idempotent and a no-op when no script is running.
func (e *Engine) Abort() {
	e.mu.RLock()
	sess := e.sess
	e.mu.RUnlock()
	if sess == nil {
		return
	}
	select {
	case sess.abortReqs <- struct{}{}:
	default:
		// An abort is already pending.
	}
}

// Overflows reports how many incoming lines have been discarded because
// they exceeded the receive buffer capacity.
func (e *Engine) Overflows() uint64 {
	return e.overflows.Load()
}

func (e *Engine) submit(script *Script) (*scriptRun, error) {
	if e.closed.Load() {
		return nil, ErrAlreadyClosed
	}
	if err := script.validate(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	sess := e.sess
	e.mu.RUnlock()
	if sess == nil {
		return nil, ErrNotAttached
	}

	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	run := &scriptRun{script: script, done: make(chan Result, 1)}
	select {
	case sess.submits <- run:
		return run, nil
	case <-sess.detach:
		e.busy.Store(false)
		return nil, ErrNotAttached
	}
}

// readLoop delivers raw chunks from the transport to the processing
// goroutine. It is the only reader of the transport while attached.
func (e *Engine) readLoop(sess *session) {
	buf := make([]byte, 512)
	for {
		n, err := sess.transport.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case sess.chunks <- chunk:
			case <-sess.detach:
				return
			}
		}
		if err != nil {
			select {
			case sess.readErrs <- err:
			case <-sess.detach:
			}
			return
		}
	}
}

// loop is the engine's serialized processing context. Line dispatch, script
// state transitions, timers and callbacks all happen here.
func (e *Engine) loop(sess *session) {
	defer close(sess.done)
	for {
		select {
		case <-sess.detach:
			if e.active != nil {
				e.snd.reset()
				e.finish(ResultAbort)
			}
			// A submission accepted just before detach still gets its
			// exactly-once completion.
			select {
			case run := <-sess.submits:
				e.active = run
				_ = e.sm.Start()
				e.finish(ResultAbort)
			default:
			}
			e.asm.reset()
			return

		case chunk := <-sess.chunks:
			e.asm.feed(chunk, func(line []byte) {
				e.processLine(sess, line)
			}, e.onOverflow)

		case run := <-sess.submits:
			e.startScript(sess, run)

		case <-sess.abortReqs:
			if e.active != nil {
				e.log.Info("script aborted", "script", e.active.script.Name)
				e.snd.reset()
				e.finish(ResultAbort)
			}

		case ev := <-sess.timers:
			e.onTimer(sess, ev)

		case err := <-sess.readErrs:
			// The reader has stopped. Pending timeouts still conclude any
			// active script; new lines can no longer arrive.
			e.log.Warn("transport read failed", "error", err)
		}
	}
}

func (e *Engine) startScript(sess *session, run *scriptRun) {
	e.active = run
	e.stepIdx = 0
	_ = e.sm.Start()
	script := run.script
	e.log.Debug("script started", "script", script.Name, "steps", len(script.Steps))
	if script.Timeout > 0 {
		e.armScriptTimer(sess, script.Timeout)
	}
	e.startStep(sess)
}

// startStep sends the current step's request and arms its timeout. When the
// step index is past the last step, the script completes successfully.
func (e *Engine) startStep(sess *session) {
	steps := e.active.script.Steps
	if e.stepIdx >= len(steps) {
		e.finish(ResultSuccess)
		return
	}
	if e.sm.Awaiting() {
		_ = e.sm.Next()
	}

	step := &steps[e.stepIdx]
	if len(step.Request) > 0 {
		e.snd.load([]byte(step.Request), e.config.Delimiter)
		if err := e.snd.pump(sess.transport); err != nil {
			// A persistent write failure concludes the run the same way a
			// timeout would; retry policy belongs to the transport.
			e.log.Warn("request write failed",
				"script", e.active.script.Name, "step", e.stepIdx, "error", err)
			e.snd.reset()
			e.finish(ResultTimeout)
			return
		}
	}
	_ = e.sm.Sent()

	if len(step.Responses) == 0 {
		if step.Timeout <= 0 {
			// Fire and forget.
			e.stepIdx++
			e.startStep(sess)
			return
		}
		// No reply expected; advance once the wait elapses.
		e.stepAdvance = true
		e.armStepTimer(sess, step.Timeout)
		return
	}

	e.stepAdvance = false
	if step.Timeout > 0 {
		e.armStepTimer(sess, step.Timeout)
	}
}

// processLine dispatches one complete line: abort matches first, then the
// current step's responses while one is awaited, then the unsolicited table.
// Within each table the first match wins.
func (e *Engine) processLine(sess *session, line []byte) {
	if e.active != nil {
		script := e.active.script
		for i := range script.Aborts {
			m := &script.Aborts[i]
			if args, ok := m.matchLine(line, e.config.MaxArgs); ok {
				if m.Callback != nil {
					m.Callback(e, args)
				}
				e.log.Debug("abort match", "script", script.Name, "line", args[0])
				e.snd.reset()
				e.finish(ResultAbort)
				return
			}
		}
		if e.sm.Awaiting() && e.stepIdx < len(script.Steps) {
			step := &script.Steps[e.stepIdx]
			for i := range step.Responses {
				m := &step.Responses[i]
				args, ok := m.matchLine(line, e.config.MaxArgs)
				if !ok {
					continue
				}
				if m.Callback != nil {
					m.Callback(e, args)
				}
				if m.Partial {
					return
				}
				// Cancel the step timer before advancing; a timeout that
				// already fired is invalidated by the generation bump.
				e.stepGen++
				if e.stepTimer != nil {
					e.stepTimer.Stop()
				}
				e.stepIdx++
				e.startStep(sess)
				return
			}
		}
	}

	for i := range e.config.Unsolicited {
		m := &e.config.Unsolicited[i]
		if args, ok := m.matchLine(line, e.config.MaxArgs); ok {
			if m.Callback != nil {
				m.Callback(e, args)
			}
			return
		}
	}
}

func (e *Engine) onTimer(sess *session, ev timerEvent) {
	if e.active == nil {
		return
	}
	if ev.overall {
		if ev.gen != e.scriptGen {
			return
		}
		e.log.Debug("script timeout", "script", e.active.script.Name)
		e.snd.reset()
		e.finish(ResultTimeout)
		return
	}
	if ev.gen != e.stepGen {
		return
	}
	if e.stepAdvance {
		e.stepIdx++
		e.startStep(sess)
		return
	}
	e.log.Debug("step timeout", "script", e.active.script.Name, "step", e.stepIdx)
	e.finish(ResultTimeout)
}

// finish concludes the active run: timers are invalidated, the runner
// returns to idle, the busy slot is released, and the outcome is delivered
// exactly once.
func (e *Engine) finish(result Result) {
	run := e.active
	if run == nil {
		return
	}
	e.active = nil
	e.stepGen++
	e.scriptGen++
	if e.stepTimer != nil {
		e.stepTimer.Stop()
		e.stepTimer = nil
	}
	if e.scriptTimer != nil {
		e.scriptTimer.Stop()
		e.scriptTimer = nil
	}
	switch result {
	case ResultAbort:
		_ = e.sm.Abort()
	case ResultTimeout:
		_ = e.sm.Timeout()
	default:
		_ = e.sm.Finish()
	}

	e.log.Info("script finished", "script", run.script.Name, "result", result.String())
	e.busy.Store(false)
	if run.script.Callback != nil {
		run.script.Callback(e, result)
	}
	run.done <- result
}

func (e *Engine) armStepTimer(sess *session, d time.Duration) {
	e.stepGen++
	gen := e.stepGen
	if e.stepTimer != nil {
		e.stepTimer.Stop()
	}
	e.stepTimer = time.AfterFunc(d, func() {
		select {
		case sess.timers <- timerEvent{gen: gen}:
		case <-sess.detach:
		}
	})
}

func (e *Engine) armScriptTimer(sess *session, d time.Duration) {
	e.scriptGen++
	gen := e.scriptGen
	if e.scriptTimer != nil {
		e.scriptTimer.Stop()
	}
	e.scriptTimer = time.AfterFunc(d, func() {
		select {
		case sess.timers <- timerEvent{gen: gen, overall: true}:
		case <-sess.detach:
		}
	})
}

func (e *Engine) onOverflow() {
	e.overflows.Inc()
	e.log.Warn("incoming line discarded",
		"error", ErrOverflow, "capacity", e.config.ReceiveBufferSize)
}
