package ai

import "encoding/json"

// ExtractObject returns the first top-level balanced {...} span in reply
// that is valid JSON. Braces inside string literals are ignored. Models often
// wrap the object in prose or code fences. Objects nested inside an invalid
// or unclosed span are never returned: a reply truncated mid-object has no
// payload.
func ExtractObject(reply string) (json.RawMessage, bool) {
	for start := 0; start < len(reply); start++ {
		if reply[start] != '{' {
			continue
		}
		end, ok := matchBrace(reply, start)
		if !ok {
			return nil, false
		}
		candidate := reply[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), true
		}
		start = end
	}
	return nil, false
}

// matchBrace returns the index of the '}' closing the '{' at start.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
