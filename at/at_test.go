package at_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"i4.energy/across/modemchat/at"
	"i4.energy/across/modemchat/chat"
)

func newEngine(t *testing.T, transport chat.Transport) *chat.Engine {
	t.Helper()
	config, err := chat.NewConfigBuilder().Build()
	require.NoError(t, err)
	engine, err := chat.New(config)
	require.NoError(t, err)
	require.NoError(t, engine.Attach(transport))
	t.Cleanup(engine.Release)
	return engine
}

// exchange waits for the expected cumulative outbound bytes, then injects
// the device's reply.
func exchange(t *testing.T, transport *chat.TestTransport, wantWritten, reply string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if transport.Written() == wantWritten {
			transport.SendData(reply)
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("written = %q, want %q", transport.Written(), wantWritten)
}

func TestInitScript(t *testing.T) {
	transport := chat.NewTestTransport()
	defer transport.Close()
	engine := newEngine(t, transport)

	results := make(chan chat.Result, 1)
	require.NoError(t, engine.Submit(at.InitScript(func(_ *chat.Engine, r chat.Result) {
		results <- r
	})))

	exchange(t, transport, "AT\r\n", "OK\r\n")
	exchange(t, transport, "AT\r\nATE0\r\n", "OK\r\n")
	exchange(t, transport, "AT\r\nATE0\r\nAT+CMEE=2\r\n", "OK\r\n")
	exchange(t, transport, "AT\r\nATE0\r\nAT+CMEE=2\r\nAT+CMGF=1\r\n", "OK\r\n")

	select {
	case result := <-results:
		require.Equal(t, chat.ResultSuccess, result)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for init result")
	}
}

func TestInitScriptAbortsOnCmeError(t *testing.T) {
	transport := chat.NewTestTransport()
	defer transport.Close()
	engine := newEngine(t, transport)

	results := make(chan chat.Result, 1)
	require.NoError(t, engine.Submit(at.InitScript(func(_ *chat.Engine, r chat.Result) {
		results <- r
	})))

	exchange(t, transport, "AT\r\n", "OK\r\n")
	exchange(t, transport, "AT\r\nATE0\r\n", "+CME ERROR: 10\r\n")

	select {
	case result := <-results:
		require.Equal(t, chat.ResultAbort, result)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for init result")
	}

	// No further commands go out after the abort.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, "AT\r\nATE0\r\n", transport.Written())
}

func TestCommandScript(t *testing.T) {
	script := at.Command("AT+CSQ", 0, nil)
	require.Equal(t, "AT+CSQ", script.Name)
	require.Len(t, script.Steps, 1)
	require.Equal(t, "AT+CSQ", script.Steps[0].Request)
	require.Equal(t, at.DefaultTimeout, script.Steps[0].Timeout)
	require.Equal(t, 2*at.DefaultTimeout, script.Timeout)
	require.NotEmpty(t, script.Aborts)
}

// The overall bound must follow the step timeout, not the default, so a
// caller asking for a long-running command gets the full window.
func TestCommandScriptLongTimeout(t *testing.T) {
	script := at.Command("AT+COPS=?", 30*time.Second, nil)
	require.Equal(t, 30*time.Second, script.Steps[0].Timeout)
	require.Equal(t, 60*time.Second, script.Timeout)
}

func TestAbortsTable(t *testing.T) {
	for _, m := range at.Aborts() {
		require.NotEmpty(t, m.Pattern)
		require.False(t, m.Partial, "abort match %q must not be partial", m.Pattern)
	}
}

func TestNotifications(t *testing.T) {
	matches := at.Notifications(nil)
	patterns := make([]string, 0, len(matches))
	for _, m := range matches {
		patterns = append(patterns, m.Pattern)
	}
	require.Contains(t, patterns, at.UrcNewMsg)
	require.Contains(t, patterns, at.UrcNetworkReg)
	require.Contains(t, patterns, at.UrcRing)
}
