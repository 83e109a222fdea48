package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

func FormatImageList(query string, urls []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b> - %d шт.\n\n", html.EscapeString(query), len(urls)))

	for i, u := range urls {
		escaped := html.EscapeString(u)
		sb.WriteString(fmt.Sprintf("%d. <a href=\"%s\">%s</a>\n", i+1, escaped, html.EscapeString(truncateURL(u, 60))))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func FormatImageLink(url string) string {
	escaped := html.EscapeString(url)
	return fmt.Sprintf("<a href=\"%s\">%s</a>", escaped, escaped)
}

func FormatQuota(used, threshold, left int) string {
	return fmt.Sprintf("Использовано запросов: %d из %d (осталось %d).", used, threshold, left)
}

func FormatNotFound(query string) string {
	return fmt.Sprintf("Ничего не найдено по запросу «%s».", html.EscapeString(query))
}

// SplitMessage режет по строкам; строку длиннее maxLen режет cutIndex.
func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			messages = append(messages, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > maxLen {
			flush()
			i := cutIndex(line, maxLen)
			messages = append(messages, line[:i])
			line = line[i:]
		}
		if cur.Len()+len(line) > maxLen {
			flush()
		}
		cur.WriteString(line)
	}
	flush()

	return messages
}

// cutIndex picks a cut point in s (len(s) > maxLen) that keeps the head within
// maxLen bytes and does not split a rune, an HTML tag or an entity.
func cutIndex(s string, maxLen int) int {
	i := maxLen
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	if i == 0 {
		_, size := utf8.DecodeRuneInString(s)
		return size
	}

	head := s[:i]
	if open := strings.LastIndexByte(head, '<'); open > 0 && open > strings.LastIndexByte(head, '>') {
		i = open
	}
	head = s[:i]
	if amp := strings.LastIndexByte(head, '&'); amp > 0 && amp > strings.LastIndexByte(head, ';') {
		i = amp
	}
	return i
}

func truncateURL(url string, maxLen int) string {
	if len(url) <= maxLen {
		return url
	}
	i := maxLen - 3
	for i > 0 && !utf8.RuneStart(url[i]) {
		i--
	}
	return url[:i] + "..."
}
