package handlers

import (
	"bytes"
	"encoding/json"
)

// optionalID decodes an id where an absent key, an explicit null and a number
// mean different things. present is false when the key was not sent; a nil id
// with present set is an explicit null.
func optionalID(raw json.RawMessage) (id *uint64, present bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true, nil
	}
	var value uint64
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, true, err
	}
	return &value, true, nil
}

// firstSent returns the first of several spellings of a key that was sent.
func firstSent(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 {
			return v
		}
	}
	return nil
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
