package chat

import (
	"io"
	"sync"
)

// TestTransport is a test helper that simulates a blocking transport using
// channels. The engine's reader goroutine continuously reads from the
// transport, so reads must block until data is available, like a real serial
// port would.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	writes   [][]byte
	closed   bool

	// WriteLimit, when positive, caps how many bytes a single Write
	// accepts, exercising partial-write resumption. WriteErr, when set,
	// is returned by every Write.
	WriteLimit int
	WriteErr   error
}

// NewTestTransport creates a new test transport. Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 16),
	}
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.WriteErr != nil {
		return 0, t.WriteErr
	}
	n := len(p)
	if t.WriteLimit > 0 && n > t.WriteLimit {
		n = t.WriteLimit
	}
	chunk := make([]byte, n)
	copy(chunk, p[:n])
	t.writes = append(t.writes, chunk)
	return n, nil
}

func (t *TestTransport) Read(p []byte) (int, error) {
	data, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues data to be read by the transport, simulating bytes
// arriving from the device.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Written returns everything written to the transport so far, joined in
// write order.
func (t *TestTransport) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []byte
	for _, w := range t.writes {
		out = append(out, w...)
	}
	return string(out)
}
