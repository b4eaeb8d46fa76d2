package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonb stores a value as a PostgreSQL JSONB column.
type jsonb[T any] struct {
	V T
}

func (j jsonb[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, fmt.Errorf("jsonb.Value: %w", err)
	}
	return b, nil
}

func (j *jsonb[T]) Scan(src any) error {
	var b []byte
	switch t := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		b = t
	case string:
		b = []byte(t)
	default:
		return fmt.Errorf("jsonb.Scan: unsupported type %T", src)
	}
	if err := json.Unmarshal(b, &j.V); err != nil {
		return fmt.Errorf("jsonb.Scan: %w", err)
	}
	return nil
}
