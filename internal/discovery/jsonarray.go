package discovery

import (
	"encoding/json"
	"strings"
)

// Outcome classifies how an embedded JSON array was recovered from the raw
// model response.
type Outcome int

const (
	// OutcomeClean means the first array substring parsed as-is.
	OutcomeClean Outcome = iota
	// OutcomeRepaired means the array was truncated mid-element and the
	// complete leading elements were recovered.
	OutcomeRepaired
	// OutcomeFailed means no array could be recovered.
	OutcomeFailed
)

// ParseResult is the tri-state result of extracting event objects from a
// model response. Failure is a value, not an exception: a failed parse is
// "zero events found".
type ParseResult struct {
	Outcome  Outcome
	Elements []json.RawMessage
}

// ParseArray extracts the first top-level JSON array embedded in raw text,
// stripping any code-fence markers, and decodes its elements. If the array
// is truncated mid-element, one repair pass cuts back to the last fully
// closed element and re-closes the array, recovering everything complete
// instead of discarding the whole batch.
func ParseArray(text string) ParseResult {
	text = stripFences(text)

	start := strings.IndexByte(text, '[')
	if start < 0 {
		return ParseResult{Outcome: OutcomeFailed}
	}
	candidate := text[start:]
	if end := matchingBracket(candidate); end >= 0 {
		candidate = candidate[:end+1]
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &elements); err == nil {
		return ParseResult{Outcome: OutcomeClean, Elements: elements}
	}

	repaired, ok := repairArray(candidate)
	if !ok {
		return ParseResult{Outcome: OutcomeFailed}
	}
	if err := json.Unmarshal([]byte(repaired), &elements); err != nil {
		return ParseResult{Outcome: OutcomeFailed}
	}
	return ParseResult{Outcome: OutcomeRepaired, Elements: elements}
}

// stripFences removes markdown code-fence lines ("```json", "```").
func stripFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// matchingBracket returns the index of the ']' closing the array starting at
// s[0], or -1 if the array never closes. String literals and escapes are
// honored so brackets inside values don't confuse the scan.
func matchingBracket(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
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
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// repairArray truncates a broken array back to the end of its last fully
// closed top-level element and re-closes it. Returns false when not even one
// complete element exists.
func repairArray(s string) (string, bool) {
	if len(s) == 0 || s[0] != '[' {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	lastComplete := -1 // index just past the last fully closed element

	for i := 0; i < len(s); i++ {
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
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 1 {
				// a top-level element just closed
				lastComplete = i + 1
			}
		}
	}

	if lastComplete < 0 {
		return "", false
	}
	return s[:lastComplete] + "]", true
}
