package chat

// assembler reassembles an arbitrarily chunked byte stream into logical
// lines. Filter bytes are dropped on the way in, and the delimiter sequence
// is recognized even when split across feed calls: dmatch tracks how many
// leading delimiter bytes have been consumed so far without being committed
// to the line buffer, and fail is the delimiter's KMP failure table, used to
// realign after a partial match turns out to be line content.
//
// An assembler is owned by the engine's processing goroutine and is not safe
// for concurrent use.
type assembler struct {
	buf    []byte // accumulated line, delimiter bytes excluded
	cap    int
	delim  []byte
	filter []byte
	dmatch int
	fail   []int

	// discarding is set after an overflow; bytes are dropped until the
	// next complete delimiter so the following line parses cleanly.
	discarding bool
}

func newAssembler(capacity int, delimiter, filter []byte) *assembler {
	// fail[i] is the length of the longest proper prefix of delimiter[:i+1]
	// that is also its suffix.
	fail := make([]int, len(delimiter))
	for i := 1; i < len(delimiter); i++ {
		j := fail[i-1]
		for j > 0 && delimiter[i] != delimiter[j] {
			j = fail[j-1]
		}
		if delimiter[i] == delimiter[j] {
			j++
		}
		fail[i] = j
	}
	return &assembler{
		buf:    make([]byte, 0, capacity),
		cap:    capacity,
		delim:  delimiter,
		filter: filter,
		fail:   fail,
	}
}

func (a *assembler) filtered(b byte) bool {
	for _, f := range a.filter {
		if f == b {
			return true
		}
	}
	return false
}

// feed consumes a chunk of raw bytes. emit is called once per completed line
// with a view into the internal buffer that is only valid until the next
// byte is consumed. onOverflow is called once per overflowed line.
//
// Processing is strictly per byte, so any partition of the same stream into
// chunks produces the same sequence of emitted lines.
func (a *assembler) feed(data []byte, emit func(line []byte), onOverflow func()) {
	for _, b := range data {
		if a.filtered(b) {
			continue
		}
		a.consume(b, emit, onOverflow)
	}
}

func (a *assembler) consume(b byte, emit func(line []byte), onOverflow func()) {
	// On a mismatch the partially matched bytes cannot all be flushed as
	// line content: with a self-overlapping delimiter a suffix of them plus
	// the current byte may still open a match (delimiter "aab" after input
	// "aa" and byte 'a' must keep "aa" matched). Realign on the failure
	// table and flush only the bytes that fall out of the match.
	for a.dmatch > 0 && b != a.delim[a.dmatch] {
		next := a.fail[a.dmatch-1]
		for i := 0; i < a.dmatch-next; i++ {
			a.append(a.delim[i], onOverflow)
		}
		a.dmatch = next
	}

	if b == a.delim[a.dmatch] {
		a.dmatch++
		if a.dmatch == len(a.delim) {
			a.dmatch = 0
			if a.discarding {
				a.discarding = false
			} else {
				emit(a.buf)
			}
			a.buf = a.buf[:0]
		}
		return
	}

	a.append(b, onOverflow)
}

func (a *assembler) append(b byte, onOverflow func()) {
	if a.discarding {
		return
	}
	if len(a.buf) >= a.cap {
		a.buf = a.buf[:0]
		a.discarding = true
		onOverflow()
		return
	}
	a.buf = append(a.buf, b)
}

// reset clears all accumulated state, e.g. when a transport is detached.
func (a *assembler) reset() {
	a.buf = a.buf[:0]
	a.dmatch = 0
	a.discarding = false
}
