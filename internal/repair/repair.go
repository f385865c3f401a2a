// Package repair recovers usable JSON from raw LLM output. Models wrap their
// payloads in code fences and prose, and truncate them mid-string when they
// run out of output tokens; these functions strip the wrapping and perform
// best-effort structural repair. All functions are pure, deterministic, and
// bounded by input length.
package repair

import (
	"encoding/json"
	"strings"
)

// Clean strips leading/trailing code-fence markers and narrows the text to the
// substring between the first '{' and the last '}', dropping surrounding
// prose. Clean is idempotent: Clean(Clean(x)) == Clean(x).
func Clean(raw string) string {
	text := strings.TrimSpace(raw)
	text = stripFences(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop the language tag on the opening fence, e.g. ```json.
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(text[:nl])
		if !strings.ContainsAny(firstLine, "{}") {
			text = text[nl+1:]
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Attempt performs best-effort structural repair of truncated or malformed
// JSON: it terminates an unclosed string, then appends missing closing
// brackets and braces. The repaired text is returned only if it decodes; a
// false second return means the input was beyond repair. Attempt never returns
// text a decoder would reject.
func Attempt(text string) (string, bool) {
	t := closeDanglingString(text)
	t = balanceDelimiters(t)
	if !json.Valid([]byte(t)) {
		return "", false
	}
	return t, true
}

// closeDanglingString handles an odd number of '"' characters: when the last
// quote opens an unterminated string, a closing quote is inserted before the
// next structural character (',', ']', '}') after it, or appended at the end
// if none exists.
func closeDanglingString(t string) string {
	if strings.Count(t, `"`)%2 == 0 {
		return t
	}
	last := strings.LastIndex(t, `"`)
	if strings.Count(t[:last], `"`)%2 != 0 {
		// The last quote closes a string; the imbalance is earlier and not
		// locally repairable.
		return t
	}
	rest := t[last+1:]
	if pos := strings.IndexAny(rest, ",]}"); pos >= 0 {
		return t[:last+1+pos] + `"` + t[last+1+pos:]
	}
	return t + `"`
}

// balanceDelimiters appends the missing closing delimiters, innermost first:
// it tracks the actual nesting order of unmatched '{' and '[' outside of
// strings and closes them in reverse.
func balanceDelimiters(t string) string {
	var stack []byte
	inString := false
	escape := false
	for i := 0; i < len(t); i++ {
		b := t[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, b)
		case '}':
			if n := len(stack); n > 0 && stack[n-1] == '{' {
				stack = stack[:n-1]
			}
		case ']':
			if n := len(stack); n > 0 && stack[n-1] == '[' {
				stack = stack[:n-1]
			}
		}
	}
	closers := make([]byte, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			closers = append(closers, '}')
		} else {
			closers = append(closers, ']')
		}
	}
	return t + string(closers)
}

// ExtractObjects scans s for complete top-level JSON objects and returns each
// candidate substring. It walks bytes with a small state machine that skips
// string contents and escape sequences, so prose mixed between objects does
// not confuse the brace matching. Iterating bytes is safe for the ASCII
// delimiters involved because UTF-8 never embeds them in multi-byte sequences.
func ExtractObjects(s string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			// Only treat quotes inside an object as string delimiters; a
			// stray apostrophe-free quote in prose outside any braces is
			// harmless either way.
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}
