package agent

import (
	"strings"
)

const longParagraph = 400

// Postprocess drops blank lines, collapses consecutive duplicate lines and
// turns one long run of text into a bulleted summary.
func Postprocess(text string) string {
	if strings.TrimSpace(text) == "" {
		return "(no tokens generated — try a shorter question)"
	}

	var lines []string
	last := ""
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || l == last {
			continue
		}
		lines = append(lines, l)
		last = l
	}
	out := strings.Join(lines, "\n")

	if len(out) <= longParagraph {
		return out
	}
	var b strings.Builder
	b.WriteString("**Summary:**\n\n")
	for i, s := range splitSentences(out) {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(s)
	}
	return b.String()
}

// splitSentences breaks text after '.', '!' or '?' when whitespace follows.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
		default:
			continue
		}
		if !isSpace(text[i+1]) {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
