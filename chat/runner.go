package chat

import (
	"context"

	"github.com/looplab/fsm"
)

// Script runner states.
const (
	stateIdle     = "idle"
	stateSending  = "sending"
	stateAwaiting = "awaiting"
)

// Script runner events.
const (
	eventStart   = "start"
	eventSent    = "sent"
	eventNext    = "next"
	eventFinish  = "finish"
	eventAbort   = "abort"
	eventTimeout = "timeout"
)

// runnerFSM guards the script runner's state transitions. The engine's
// processing goroutine is the only caller, so the machine needs no locking
// beyond what looplab/fsm provides; its value is rejecting transitions that
// have become stale, such as a timeout firing after the run already ended.
type runnerFSM struct {
	fsm *fsm.FSM
}

func newRunnerFSM() *runnerFSM {
	active := []string{stateSending, stateAwaiting}
	return &runnerFSM{
		fsm: fsm.NewFSM(
			stateIdle,
			fsm.Events{
				{Name: eventStart, Src: []string{stateIdle}, Dst: stateSending},
				{Name: eventSent, Src: []string{stateSending}, Dst: stateAwaiting},
				{Name: eventNext, Src: []string{stateAwaiting}, Dst: stateSending},
				{Name: eventFinish, Src: active, Dst: stateIdle},
				{Name: eventAbort, Src: active, Dst: stateIdle},
				{Name: eventTimeout, Src: active, Dst: stateIdle},
			},
			fsm.Callbacks{},
		),
	}
}

func (r *runnerFSM) Current() string {
	return r.fsm.Current()
}

func (r *runnerFSM) Idle() bool {
	return r.fsm.Current() == stateIdle
}

func (r *runnerFSM) Awaiting() bool {
	return r.fsm.Current() == stateAwaiting
}

func (r *runnerFSM) event(name string) error {
	return r.fsm.Event(context.Background(), name)
}

func (r *runnerFSM) Start() error   { return r.event(eventStart) }
func (r *runnerFSM) Sent() error    { return r.event(eventSent) }
func (r *runnerFSM) Next() error    { return r.event(eventNext) }
func (r *runnerFSM) Finish() error  { return r.event(eventFinish) }
func (r *runnerFSM) Abort() error   { return r.event(eventAbort) }
func (r *runnerFSM) Timeout() error { return r.event(eventTimeout) }
