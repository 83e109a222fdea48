package telegram

import (
	"strconv"
	"strings"
)

// "/imgs@MyBot 3 котики" -> ("imgs", "3 котики"); обычный текст -> ("", текст)
func ParseCommand(text string) (command, args string) {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "/") {
		return "", normalizeSpaces(text)
	}

	head, rest, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}

	command = strings.ToLower(strings.TrimPrefix(head, "/"))
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}

	return command, normalizeSpaces(rest)
}

// ParseBatchArgs: leading number is the count only when a query follows it,
// so "/imgs 1984" searches for "1984".
func ParseBatchArgs(args string, defaultCount int) (query string, count int) {
	fields := strings.Fields(args)
	count = defaultCount

	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
			count = n
			fields = fields[1:]
		}
	}

	if count > maxBatchCount {
		count = maxBatchCount
	}

	return strings.Join(fields, " "), count
}

func normalizeSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
