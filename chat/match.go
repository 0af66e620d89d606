package chat

import "errors"

// WildcardByte is the byte that, in a wildcard-enabled pattern, matches any
// single byte of the candidate line at the same position.
const WildcardByte = '?'

// MatchCallback is invoked from the engine's processing goroutine when a
// line matches a descriptor. args[0] always holds the full matched line
// verbatim; args[1:] hold the fields split out of the text following the
// pattern. The slice is only valid for the duration of the call.
type MatchCallback func(e *Engine, args []string)

// Match describes one recognizable line: a pattern the line must begin with,
// a separator set used to split the remainder into arguments, and a callback
// fired on recognition.
//
// A Match is a value; the engine never mutates it. Matches placed in a
// script's response or abort tables, or in the engine's unsolicited table,
// must not change while the engine references them.
type Match struct {
	// Pattern is the literal prefix a line must start with. With Wildcard
	// set, each WildcardByte in the pattern matches any one byte instead.
	Pattern string

	// Separators is the set of bytes that delimit arguments in the text
	// following the pattern. Runs of consecutive separators are collapsed;
	// empty arguments are never produced.
	Separators string

	// Wildcard enables WildcardByte handling in Pattern.
	Wildcard bool

	// Partial marks a match that fires its callback without advancing the
	// running script to its next step. Partial matches are not allowed in
	// abort tables.
	Partial bool

	// Callback, if non-nil, is invoked with the parsed arguments.
	Callback MatchCallback
}

func (m *Match) validate() error {
	if m.Pattern == "" {
		return errors.New("match has empty pattern")
	}
	return nil
}

// matchPrefix reports whether line begins with the descriptor's pattern.
func (m *Match) matchPrefix(line []byte) bool {
	if len(line) < len(m.Pattern) {
		return false
	}
	for i := 0; i < len(m.Pattern); i++ {
		p := m.Pattern[i]
		if m.Wildcard && p == WildcardByte {
			continue
		}
		if line[i] != p {
			return false
		}
	}
	return true
}

func (m *Match) isSeparator(b byte) bool {
	for i := 0; i < len(m.Separators); i++ {
		if m.Separators[i] == b {
			return true
		}
	}
	return false
}

// matchLine matches line against the descriptor and, on success, returns the
// argument list. args[0] is the full line verbatim. The remainder after the
// pattern is split on the separator set with consecutive separators
// collapsed. At most maxArgs arguments are produced; once the limit is
// reached the unsplit remainder becomes the final argument.
func (m *Match) matchLine(line []byte, maxArgs int) ([]string, bool) {
	if !m.matchPrefix(line) {
		return nil, false
	}

	args := make([]string, 1, 4)
	args[0] = string(line)

	rest := line[len(m.Pattern):]
	if len(m.Separators) == 0 || maxArgs < 2 {
		return args, true
	}

	start := -1
	for i := 0; i <= len(rest); i++ {
		atEnd := i == len(rest)
		if !atEnd && !m.isSeparator(rest[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start < 0 {
			continue
		}
		if len(args) >= maxArgs-1 && !atEnd {
			// Argument slots exhausted; the rest stays unsplit.
			args = append(args, string(rest[start:]))
			return args, true
		}
		args = append(args, string(rest[start:i]))
		start = -1
	}
	return args, true
}
