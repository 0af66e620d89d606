package chat

import (
	"fmt"
	"time"
)

// Result is the final outcome of a script run, delivered exactly once per
// accepted submission via the script's callback and the Run return value.
type Result int

const (
	// ResultSuccess means every step completed.
	ResultSuccess Result = iota
	// ResultAbort means an abort match fired or Abort was called.
	ResultAbort
	// ResultTimeout means a step timeout, the overall script timeout, or a
	// persistent transport write failure ended the run.
	ResultTimeout
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultAbort:
		return "abort"
	case ResultTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// ScriptCallback receives the outcome of a script run. It is invoked from
// the engine's processing goroutine; it must not block and must not call
// Run on the same engine.
type ScriptCallback func(e *Engine, result Result)

// Step is one request/response exchange within a script.
type Step struct {
	// Request is sent followed by the engine's delimiter. An empty request
	// sends nothing; the step only waits.
	Request string

	// Responses lists the acceptable replies for this step. The first
	// match in list order wins. An empty list makes the step
	// fire-and-forget: the runner advances once Timeout has elapsed
	// (immediately when Timeout is zero).
	Responses []Match

	// Timeout bounds the wait for a response. Zero with responses
	// configured means the step waits indefinitely, bounded only by the
	// script's overall timeout.
	Timeout time.Duration
}

// Script is an ordered sequence of steps plus the abort conditions that can
// cut the whole sequence short.
//
// A Script is never mutated or retained by the engine beyond the duration of
// its run, but it must not be modified while the run is in progress.
type Script struct {
	// Name identifies the script in logs.
	Name string

	// Steps are executed in order. A script with no steps completes
	// immediately with ResultSuccess.
	Steps []Step

	// Aborts are checked against every incoming line while the script is
	// active, regardless of the current step, and take precedence over
	// response matches. Partial matches are not allowed here.
	Aborts []Match

	// Callback receives the run's Result. May be nil when the caller uses
	// Run and needs no side channel.
	Callback ScriptCallback

	// Timeout bounds the entire run. Zero means unbounded.
	Timeout time.Duration
}

func (s *Script) validate() error {
	if s == nil {
		return fmt.Errorf("%w: script is nil", ErrInvalidScript)
	}
	for i := range s.Steps {
		for j := range s.Steps[i].Responses {
			if err := s.Steps[i].Responses[j].validate(); err != nil {
				return fmt.Errorf("%w: step %d response %d: %v", ErrInvalidScript, i, j, err)
			}
		}
	}
	for i := range s.Aborts {
		if err := s.Aborts[i].validate(); err != nil {
			return fmt.Errorf("%w: abort %d: %v", ErrInvalidScript, i, err)
		}
		if s.Aborts[i].Partial {
			return fmt.Errorf("%w: abort %d: partial match not allowed in abort table", ErrInvalidScript, i)
		}
	}
	return nil
}
