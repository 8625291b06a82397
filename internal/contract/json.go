package contract

import "strings"

const fence = "```"

// ExtractJSON returns the JSON payload of a model response.
//
// Surrounding whitespace is trimmed. When the text contains a code fence the
// payload runs from the first '{' or '[' (whichever comes first) to the last
// matching closer. Unfenced text is returned whole.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if !strings.Contains(s, fence) {
		return s
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s
	}
	return s[start : end+1]
}
