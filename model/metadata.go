package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/mlehmk/fabula/helper"
)

// Metadata is a JSONB column value: run metadata (model identifiers and
// counts) and the full event payload persisted alongside each event row.
type Metadata map[string]interface{}

// Value implements driver.Valuer so Metadata can be bound as a query
// parameter.
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements sql.Scanner for reading JSONB columns back.
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes.
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal accepts JSON bytes or an existing Metadata value. A nil value
// becomes an empty map, not nil.
func (m *Metadata) Unmarshal(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = Metadata(s)
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}
