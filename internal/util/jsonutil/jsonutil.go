// Package jsonutil holds JSON helpers for model output and API encoding.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoObject is returned when no JSON object can be recovered from text.
var ErrNoObject = errors.New("jsonutil: no JSON object found")

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c and friends.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ExtractObject recovers a single JSON object from model output. It accepts
// bare objects, objects inside ``` fences, objects surrounded by prose, and
// objects encoded as a JSON string (up to two levels).
func ExtractObject(raw []byte) (json.RawMessage, error) {
	text := strings.TrimSpace(string(raw))
	for depth := 0; depth < 3; depth++ {
		text = stripFence(text)
		if obj, ok := firstObject(text); ok {
			return obj, nil
		}
		var s string
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			break
		}
		text = strings.TrimSpace(s)
	}
	return nil, ErrNoObject
}

// UnmarshalObject is ExtractObject followed by json.Unmarshal.
func UnmarshalObject(raw []byte, v any) error {
	obj, err := ExtractObject(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(obj, v)
}

func stripFence(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	// Drop an info string such as "json".
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[\"") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// firstObject scans for the first balanced {...} span that parses as JSON.
func firstObject(s string) (json.RawMessage, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := matchBrace(s, i)
		if end < 0 {
			return nil, false
		}
		candidate := s[i : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), true
		}
	}
	return nil, false
}

func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
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
				return i
			}
		}
	}
	return -1
}
