package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ParseObject pulls the first JSON object out of free model output and decodes it into v.
// Markdown fences, leading prose and a cut-off tail are tolerated.
func ParseObject(text string, v any) error {

	b, err := ExtractObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w. %s", ErrUnparseable, err)
	}
	return nil
}

// ExtractObject returns the bytes of a syntactically valid JSON object found in text.
func ExtractObject(text string) ([]byte, error) {

	cleaned := stripFence(text)

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return nil, fmt.Errorf("%w. no JSON object found", ErrUnparseable)
	}

	var candidates []string
	if end := matchingBrace(cleaned, start); end > 0 {
		candidates = append(candidates, cleaned[start:end+1])
	}
	if m := objectPattern.FindString(cleaned); m != "" {
		candidates = append(candidates, m)
	}

	for _, c := range candidates {
		if json.Valid([]byte(c)) {
			return []byte(c), nil
		}
	}

	if repaired, ok := repairTruncated(cleaned[start:]); ok {
		return []byte(repaired), nil
	}
	if s := lastObject(cleaned); s != "" && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("%w. malformed JSON object", ErrUnparseable)
}

func stripFence(text string) string {

	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], "{") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// matchingBrace returns the index of the brace closing the one at start, or -1.
func matchingBrace(s string, start int) int {

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// lastObject walks back from the final closing brace to its opener.
func lastObject(s string) string {

	end := strings.LastIndexByte(s, '}')
	if end < 0 {
		return ""
	}

	depth := 0
	for i := end; i >= 0; i-- {
		switch s[i] {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return s[i : end+1]
			}
		}
	}
	return ""
}

// repairTruncated closes an object whose tail was cut off. It first tries to close the text
// as it stands, then drops the trailing partial member one comma at a time.
func repairTruncated(s string) (string, bool) {

	type cut struct {
		pos   int
		stack []byte
	}

	var stack []byte
	var cuts []cut
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			if len(stack) == 0 {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				// balanced object followed by garbage, nothing to repair
				return "", false
			}
		case ',':
			cuts = append(cuts, cut{pos: i, stack: append([]byte(nil), stack...)})
		}
	}

	if !inString {
		body := strings.TrimRight(strings.TrimSpace(s), ",:")
		if c := closeAll(body, stack); json.Valid([]byte(c)) {
			return c, true
		}
	}

	for i := len(cuts) - 1; i >= 0; i-- {
		c := closeAll(strings.TrimSpace(s[:cuts[i].pos]), cuts[i].stack)
		if json.Valid([]byte(c)) {
			return c, true
		}
	}
	return "", false
}

func closeAll(body string, stack []byte) string {

	var sb strings.Builder
	sb.WriteString(body)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			sb.WriteByte('}')
		} else {
			sb.WriteByte(']')
		}
	}
	return sb.String()
}
