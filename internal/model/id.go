// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an opaque server-assigned identifier. The zero value means the
// object has not been created on the server yet.
//
// Servers are inconsistent about whether ids are strings or numbers, so ID
// decodes from a JSON string, a JSON number, or null.
type ID string

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// String returns the raw identifier.
func (id ID) String() string {
	return string(id)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a string or number: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

// MarshalJSON encodes the zero id as null.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}
