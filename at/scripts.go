package at

import (
	"time"

	"i4.energy/across/modemchat/chat"
)

// DefaultTimeout bounds a single AT command exchange.
const DefaultTimeout = 5 * time.Second

// Step builds one command step expecting a final OK.
func Step(command string, timeout time.Duration) chat.Step {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return chat.Step{
		Request:   command,
		Responses: []chat.Match{ResponseOK()},
		Timeout:   timeout,
	}
}

// Command builds a one-step script that sends a single command and succeeds
// on OK, with the standard abort table. The overall bound scales with the
// step timeout so slow commands are not cut short.
func Command(command string, timeout time.Duration, cb chat.ScriptCallback) *chat.Script {
	step := Step(command, timeout)
	return &chat.Script{
		Name:     command,
		Steps:    []chat.Step{step},
		Aborts:   Aborts(),
		Callback: cb,
		Timeout:  2 * step.Timeout,
	}
}

// InitScript returns the standard wake-up sequence: sanity check, echo off,
// verbose errors, SMS text mode.
func InitScript(cb chat.ScriptCallback) *chat.Script {
	return &chat.Script{
		Name: "init",
		Steps: []chat.Step{
			Step("AT", time.Second),
			Step("ATE0", time.Second),
			Step("AT+CMEE=2", time.Second),
			Step("AT+CMGF=1", time.Second),
		},
		Aborts:   Aborts(),
		Callback: cb,
		Timeout:  30 * time.Second,
	}
}
