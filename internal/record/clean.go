package record

import (
	"regexp"
	"strings"
)

var (
	reFence      = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\\n?(.*?)\\n?\\s*```\\s*$")
	reCellTag    = regexp.MustCompile(`(?i)</?(fcel|lcel|ecel|ucel|xcel)>`)
	reNewlineTag = regexp.MustCompile(`(?i)<nl\s*/?>`)
	reAnyTag     = regexp.MustCompile(`<[^<>\n]{1,32}>`)
)

// Clean removes decoration models wrap around the answer: markdown fences, table-cell and
// layout tags, blank lines and consecutive duplicate lines.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	if m := reFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	s = reCellTag.ReplaceAllString(s, "")
	s = reNewlineTag.ReplaceAllString(s, "\n")
	s = reAnyTag.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	prev := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || line == prev {
			continue
		}
		out = append(out, line)
		prev = line
	}
	return strings.Join(out, "\n")
}
