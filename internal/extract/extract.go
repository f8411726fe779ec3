// Package extract recovers JSON objects from free-form LLM output.
//
// Generation responses are rarely clean JSON: models wrap objects in prose,
// truncate them mid-string, or leave a trailing comma before the closing
// brace. Extract isolates the repair heuristics here so stage code never
// hand-rolls string scanning.
package extract

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoObject is returned when no brace-delimited object is present.
var ErrNoObject = errors.New("extract: no JSON object found")

// ErrUnparsable is returned when strict parsing and one repair pass both fail.
var ErrUnparsable = errors.New("extract: object could not be parsed")

// Extract locates the first '{' and last '}' in raw, parses the substring,
// and on failure applies a single conservative repair pass before retrying.
// It never fabricates missing values; callers own their own defaults.
func Extract(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, ErrNoObject
	}
	candidate := raw[start : end+1]

	if obj, ok := parse(candidate); ok {
		return obj, nil
	}
	if obj, ok := parse(repair(candidate)); ok {
		return obj, nil
	}
	return nil, ErrUnparsable
}

func parse(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// repair applies the two rules the extractor is allowed:
//   - strip a dangling comma before the final brace
//   - if an unterminated string fragment trails the last complete value,
//     truncate back to the last complete '}' or the last closing quote,
//     whichever is later, and re-close the object
func repair(s string) string {
	trimmed := stripTrailingComma(s)
	if _, ok := parse(trimmed); ok {
		return trimmed
	}
	return truncateToLastComplete(trimmed)
}

func stripTrailingComma(s string) string {
	end := strings.LastIndex(s, "}")
	if end < 0 {
		return s
	}
	body := strings.TrimRight(s[:end], " \t\r\n")
	if strings.HasSuffix(body, ",") {
		return strings.TrimRight(strings.TrimSuffix(body, ","), " \t\r\n") + s[end:]
	}
	return s
}

func truncateToLastComplete(s string) string {
	inner := s
	if strings.HasSuffix(inner, "}") {
		inner = inner[:len(inner)-1]
	}
	lastBrace := strings.LastIndex(inner, "}")
	lastQuote := lastCompleteQuote(inner)

	cut := lastBrace
	if lastQuote > cut {
		cut = lastQuote
	}
	if cut < 0 {
		return s
	}
	body := strings.TrimRight(inner[:cut+1], " \t\r\n")
	body = stripDanglingKey(body)
	body = strings.TrimRight(body, " \t\r\n,")
	return body + strings.Repeat("}", openDepth(body))
}

// stripDanglingKey removes a trailing `"key"` left behind when its value was
// truncated away. A quote preceded by ':' is a value and stays.
func stripDanglingKey(body string) string {
	if !strings.HasSuffix(body, `"`) {
		return body
	}
	open := strings.LastIndex(body[:len(body)-1], `"`)
	if open < 0 {
		return body
	}
	prev := strings.TrimRight(body[:open], " \t\r\n")
	switch {
	case strings.HasSuffix(prev, ":"):
		return body
	case strings.HasSuffix(prev, ","):
		return strings.TrimRight(prev[:len(prev)-1], " \t\r\n")
	case strings.HasSuffix(prev, "{"):
		return prev
	}
	return body
}

// openDepth counts unclosed braces outside of string literals.
func openDepth(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		}
	}
	if depth < 0 {
		return 0
	}
	return depth
}

// lastCompleteQuote returns the index of the last quote that closes a string,
// walking the input with escape awareness.
func lastCompleteQuote(s string) int {
	last := -1
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			if inString {
				last = i
			}
			inString = !inString
		}
	}
	return last
}

// String returns the string value under key, or fallback when the key is
// missing or holds a non-string.
func String(obj map[string]any, key, fallback string) string {
	if v, ok := obj[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Number reads a numeric value under key. JSON numbers decode as float64;
// string-wrapped numbers are tolerated since models produce them routinely.
func Number(obj map[string]any, key string) (float64, bool) {
	switch v := obj[key].(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Strings reads a list of strings under key, skipping non-string elements.
func Strings(obj map[string]any, key string) []string {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
