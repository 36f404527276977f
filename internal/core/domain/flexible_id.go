package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleID accepts a JSON number or a JSON string holding a number.
// The raw text is kept so validation can happen in the Logic layer.
type FlexibleID string

// UnmarshalJSON stores a number verbatim and a string with surrounding
// whitespace trimmed. null leaves the id empty.
func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	*f = FlexibleID(string(b))
	return nil
}

// Int parses the id as a positive integer.
func (f FlexibleID) Int() (int, bool) {
	n, err := strconv.Atoi(string(f))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
