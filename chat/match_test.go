package chat

import (
	"reflect"
	"testing"
)

func TestMatchLine(t *testing.T) {
	tests := []struct {
		name     string
		match    Match
		line     string
		maxArgs  int
		wantOK   bool
		wantArgs []string
	}{
		{
			name:     "Exact final result",
			match:    Match{Pattern: "OK"},
			line:     "OK",
			maxArgs:  16,
			wantOK:   true,
			wantArgs: []string{"OK"},
		},
		{
			name:    "Pattern longer than line",
			match:   Match{Pattern: "ERROR"},
			line:    "ERR",
			maxArgs: 16,
			wantOK:  false,
		},
		{
			name:     "Prefix match with trailing text",
			match:    Match{Pattern: "+CSQ:", Separators: ", "},
			line:     "+CSQ: 15,99",
			maxArgs:  16,
			wantOK:   true,
			wantArgs: []string{"+CSQ: 15,99", "15", "99"},
		},
		{
			name:     "Full line in argv0 verbatim",
			match:    Match{Pattern: "+CREG:", Separators: ", "},
			line:     "+CREG: 1,5",
			maxArgs:  16,
			wantOK:   true,
			wantArgs: []string{"+CREG: 1,5", "1", "5"},
		},
		{
			name:     "Consecutive separators collapsed",
			match:    Match{Pattern: "+CMTI:", Separators: ", "},
			line:     `+CMTI: "SM",,3`,
			maxArgs:  16,
			wantOK:   true,
			wantArgs: []string{`+CMTI: "SM",,3`, `"SM"`, "3"},
		},
		{
			name:     "No separators configured",
			match:    Match{Pattern: "CONNECT"},
			line:     "CONNECT 115200",
			maxArgs:  16,
			wantOK:   true,
			wantArgs: []string{"CONNECT 115200"},
		},
		{
			name:     "Wildcard matches any byte",
			match:    Match{Pattern: "+C??: ", Wildcard: true, Separators: ","},
			line:     "+CXY: 1,2",
			maxArgs:  16,
			wantOK:   true,
			wantArgs: []string{"+CXY: 1,2", "1", "2"},
		},
		{
			name:    "Wildcard disabled treats ? literally",
			match:   Match{Pattern: "+C??: ", Separators: ","},
			line:    "+CXY: 1,2",
			maxArgs: 16,
			wantOK:  false,
		},
		{
			name:    "Wildcard still requires literal bytes to match",
			match:   Match{Pattern: "+C?G:", Wildcard: true},
			line:    "+CRX: 1",
			maxArgs: 16,
			wantOK:  false,
		},
		{
			name:     "Argument slots exhausted keeps remainder unsplit",
			match:    Match{Pattern: "+X:", Separators: ","},
			line:     "+X:a,b,c,d",
			maxArgs:  3,
			wantOK:   true,
			wantArgs: []string{"+X:a,b,c,d", "a", "b,c,d"},
		},
		{
			name:     "Trailing separator produces no empty argument",
			match:    Match{Pattern: "+X:", Separators: ","},
			line:     "+X:a,",
			maxArgs:  16,
			wantOK:   true,
			wantArgs: []string{"+X:a,", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, ok := tt.match.matchLine([]byte(tt.line), tt.maxArgs)
			if ok != tt.wantOK {
				t.Fatalf("matchLine() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("matchLine() args = %q, want %q", args, tt.wantArgs)
			}
		})
	}
}

func TestMatchLineDeterministic(t *testing.T) {
	m := Match{Pattern: "+CSQ:", Separators: ", "}
	line := []byte("+CSQ: 15,99")

	first, ok := m.matchLine(line, 16)
	if !ok {
		t.Fatal("expected match")
	}
	for i := 0; i < 100; i++ {
		args, ok := m.matchLine(line, 16)
		if !ok {
			t.Fatalf("iteration %d: expected match", i)
		}
		if !reflect.DeepEqual(args, first) {
			t.Fatalf("iteration %d: args = %q, want %q", i, args, first)
		}
	}
}

func TestMatchValidate(t *testing.T) {
	m := Match{}
	if err := m.validate(); err == nil {
		t.Error("expected error for empty pattern")
	}

	m = Match{Pattern: "OK"}
	if err := m.validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
