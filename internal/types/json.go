package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RawJSON is a JSON document persisted in a TEXT column. json.RawMessage
// alone satisfies neither sql.Scanner nor driver.Valuer, so columns typed
// as it cannot round-trip through database/sql; this named form adds the
// conversion while keeping the raw-bytes JSON semantics.
type RawJSON json.RawMessage

// MarshalJSON emits the document unchanged; nil renders as JSON null.
func (j RawJSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return json.RawMessage(j).MarshalJSON()
}

// UnmarshalJSON captures the raw bytes without parsing.
func (j *RawJSON) UnmarshalJSON(data []byte) error {
	return (*json.RawMessage)(j).UnmarshalJSON(data)
}

// Value stores the document as TEXT; an empty document becomes NULL.
func (j RawJSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan accepts the TEXT, BLOB and NULL forms drivers hand back.
func (j *RawJSON) Scan(src any) error {
	return scanJSONColumn((*[]byte)(j), src)
}

func scanJSONColumn(dst *[]byte, src any) error {
	switch v := src.(type) {
	case nil:
		*dst = nil
	case string:
		*dst = []byte(v)
	case []byte:
		*dst = append([]byte(nil), v...)
	default:
		return fmt.Errorf("cannot scan %T into a JSON column", src)
	}
	return nil
}
