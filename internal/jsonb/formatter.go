package jsonb

import (
	"encoding/json"
	"fmt"
)

// Format pretty-prints a JSON value. Strings and byte slices are taken to hold
// encoded JSON; anything else is marshalled as is.
func Format(value interface{}) (string, error) {
	return encode(value, true)
}

// Compact renders a JSON value on a single line
func Compact(value interface{}) (string, error) {
	return encode(value, false)
}

func encode(value interface{}, indent bool) (string, error) {
	if value == nil {
		return "null", nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	}

	if raw != nil {
		var parsed interface{}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return "", fmt.Errorf("invalid JSON: %w", err)
		}
		value = parsed
	}

	var (
		out []byte
		err error
	)
	if indent {
		out, err = json.MarshalIndent(value, "", "  ")
	} else {
		out, err = json.Marshal(value)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(out), nil
}
