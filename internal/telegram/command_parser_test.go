package telegram

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantCommand string
		wantArgs    string
	}{
		{"plain text", "рыжие котики", "", "рыжие котики"},
		{"plain text with spaces", "  рыжие   котики  ", "", "рыжие котики"},
		{"empty", "", "", ""},
		{"img command", "/img котики", "img", "котики"},
		{"img uppercase", "/IMG котики", "img", "котики"},
		{"command with bot name", "/imgs@ImageBot 3 котики", "imgs", "3 котики"},
		{"command without args", "/more", "more", ""},
		{"command newline args", "/img\nкотики", "img", "котики"},
		{"extra spaces in args", "/img   много    пробелов ", "img", "много пробелов"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, args := ParseCommand(tt.input)
			if command != tt.wantCommand {
				t.Errorf("command = %q, want %q", command, tt.wantCommand)
			}
			if args != tt.wantArgs {
				t.Errorf("args = %q, want %q", args, tt.wantArgs)
			}
		})
	}
}

func TestParseBatchArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		wantQuery string
		wantCount int
	}{
		{"query only", "котики", "котики", 5},
		{"count and query", "3 котики", "котики", 3},
		{"number is the query", "1984", "1984", 5},
		{"count capped", "500 котики", "котики", maxBatchCount},
		{"zero is part of query", "0 котики", "0 котики", 5},
		{"negative is part of query", "-2 котики", "-2 котики", 5},
		{"empty", "", "", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, count := ParseBatchArgs(tt.args, 5)
			if query != tt.wantQuery {
				t.Errorf("query = %q, want %q", query, tt.wantQuery)
			}
			if count != tt.wantCount {
				t.Errorf("count = %d, want %d", count, tt.wantCount)
			}
		})
	}
}
