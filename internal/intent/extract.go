package intent

import (
	"regexp"
	"strings"
)

// fencePattern matches a code fence marker with an optional language tag.
var fencePattern = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// Extract isolates the JSON object embedded in raw model output. Code fence
// markers are removed wherever they appear, then the text is sliced from the
// first '{' to the last '}'. Without such a pair the stripped text is
// returned so that decoding fails loudly.
func Extract(raw string) string {
	s := strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
