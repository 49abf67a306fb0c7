package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedResponse = errors.New("malformed inference response")

// decodeJSON unmarshals a model reply into v. Code fences and prose around the
// first JSON object are tolerated.
func decodeJSON(reply string, v interface{}) error {
	body := stripCodeFences(reply)
	err := json.Unmarshal([]byte(body), v)
	if err == nil {
		return nil
	}
	if obj := findFirstJSON(body); obj != "" {
		err2 := json.Unmarshal([]byte(obj), v)
		if err2 == nil {
			return nil
		}
		return fmt.Errorf("%w: %v (original error: %v)", ErrMalformedResponse, err2, err)
	}
	return fmt.Errorf("%w: no JSON found: %v", ErrMalformedResponse, err)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// findFirstJSON returns the first balanced {...} span, skipping braces inside
// string literals.
func findFirstJSON(s string) string {
	start, depth := -1, 0
	inString, escaped := false, false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
