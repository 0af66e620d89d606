package chat

import (
	"errors"
	"testing"
)

// chunkWriter accepts at most limit bytes per Write call.
type chunkWriter struct {
	limit   int
	written []byte
	calls   int
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.calls++
	n := len(p)
	if w.limit > 0 && n > w.limit {
		n = w.limit
	}
	w.written = append(w.written, p[:n]...)
	return n, nil
}

func TestSenderRequestThenDelimiter(t *testing.T) {
	w := &chunkWriter{}
	var s sender
	s.load([]byte("AT+CSQ"), []byte("\r\n"))

	if err := s.pump(w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(w.written); got != "AT+CSQ\r\n" {
		t.Errorf("written = %q, want %q", got, "AT+CSQ\r\n")
	}
	if w.calls != 2 {
		t.Errorf("calls = %d, want 2 (request, then delimiter)", w.calls)
	}
}

func TestSenderResumesPartialWrites(t *testing.T) {
	w := &chunkWriter{limit: 3}
	var s sender
	s.load([]byte("AT+CMGF=1"), []byte("\r\n"))

	if err := s.pump(w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(w.written); got != "AT+CMGF=1\r\n" {
		t.Errorf("written = %q, want %q", got, "AT+CMGF=1\r\n")
	}
}

type failingWriter struct {
	n   int
	err error
}

func (w *failingWriter) Write(p []byte) (int, error) {
	return w.n, w.err
}

func TestSenderWriteError(t *testing.T) {
	wantErr := errors.New("port gone")
	var s sender
	s.load([]byte("AT"), []byte("\r\n"))

	if err := s.pump(&failingWriter{err: wantErr}); !errors.Is(err, wantErr) {
		t.Errorf("pump() error = %v, want %v", err, wantErr)
	}
}

func TestSenderReset(t *testing.T) {
	var s sender
	s.load([]byte("AT"), []byte("\r\n"))
	s.reset()

	w := &chunkWriter{}
	if err := s.pump(w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.written) != 0 {
		t.Errorf("written = %q, want empty after reset", w.written)
	}
}
