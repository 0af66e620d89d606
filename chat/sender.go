package chat

import "io"

type sendState int

const (
	sendIdle sendState = iota
	sendRequest
	sendDelimiter
)

// sender serializes one step's outbound bytes: the request body first, then
// the line delimiter. Offsets are tracked so a transport that accepts a
// partial write resumes at the right byte instead of retransmitting or
// skipping.
type sender struct {
	state    sendState
	request  []byte
	delim    []byte
	reqOff   int
	delimOff int
}

func (s *sender) load(request, delim []byte) {
	s.request = request
	s.delim = delim
	s.reqOff = 0
	s.delimOff = 0
	s.state = sendRequest
}

// pump writes until the request and delimiter are fully accepted or the
// transport reports an error. A short write with a nil error is resumed.
func (s *sender) pump(w io.Writer) error {
	for s.state != sendIdle {
		var pending []byte
		switch s.state {
		case sendRequest:
			pending = s.request[s.reqOff:]
			if len(pending) == 0 {
				s.state = sendDelimiter
				continue
			}
		case sendDelimiter:
			pending = s.delim[s.delimOff:]
			if len(pending) == 0 {
				s.state = sendIdle
				continue
			}
		}

		n, err := w.Write(pending)
		switch s.state {
		case sendRequest:
			s.reqOff += n
		case sendDelimiter:
			s.delimOff += n
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrNoProgress
		}
	}
	return nil
}

// reset discards any unsent bytes, e.g. on abort.
func (s *sender) reset() {
	s.state = sendIdle
	s.request = nil
	s.reqOff = 0
	s.delimOff = 0
}
