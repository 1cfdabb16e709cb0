package llm

import (
	"encoding/json"
	"strings"
)

// ParseStatus classifies the outcome of decoding an LLM response. Every
// response is treated as potentially malformed; callers pick a safe
// fallback on ParseEmpty instead of propagating the failure.
type ParseStatus int

const (
	// ParseOk means a JSON object was found by the permissive scan.
	ParseOk ParseStatus = iota
	// ParsePartial means only the fence-stripped strict parse succeeded.
	ParsePartial
	// ParseEmpty means no usable JSON object was found.
	ParseEmpty
)

// DecodeObject extracts a JSON object from raw LLM output into v.
// First a permissive "find any JSON object in this string" scan, then a
// strict parse of the fence-stripped text, then ParseEmpty.
func DecodeObject(raw string, v interface{}) ParseStatus {
	if candidate := findJSONObject(raw); candidate != "" {
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return ParseOk
		}
	}

	stripped := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(stripped), v); err == nil {
		return ParsePartial
	}

	return ParseEmpty
}

// findJSONObject returns the first balanced {...} span in s, respecting
// string literals and escapes, or "" when none exists.
func findJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
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
				return s[start : i+1]
			}
		}
	}
	return ""
}

// stripCodeFences removes a surrounding markdown code fence, if any
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
