package gateway

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Dig walks raw through nested objects along path and returns the value at
// the end. Missing keys, non-object levels and JSON null all report false.
func Dig(raw json.RawMessage, path ...string) (json.RawMessage, bool) {
	current := bytes.TrimSpace(raw)
	for _, key := range path {
		if len(current) == 0 || current[0] != '{' {
			return nil, false
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok {
			return nil, false
		}
		current = bytes.TrimSpace(next)
	}
	if len(current) == 0 || bytes.Equal(current, []byte("null")) {
		return nil, false
	}
	return current, true
}

// IsArray reports whether raw holds a JSON array.
func IsArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// IsObject reports whether raw holds a JSON object.
func IsObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

var messagePaths = [][]string{
	{"message"},
	{"msg"},
	{"error"},
	{"detail"},
	{"data", "message"},
	{"data", "error"},
	{"result", "message"},
	{"error", "message"},
}

// ExtractMessage finds a human readable message in an API response body.
func ExtractMessage(body []byte) string {
	for _, path := range messagePaths {
		value, ok := Dig(body, path...)
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}
