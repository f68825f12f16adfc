package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type JSONB[T any] struct {
	Data T
}

func NewJSONB[T any](data T) JSONB[T] {
	return JSONB[T]{Data: data}
}

func (p *JSONB[T]) Scan(src any) error {
	var zero T
	switch v := src.(type) {
	case nil:
		p.Data = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &p.Data)
	case string:
		return json.Unmarshal([]byte(v), &p.Data)
	default:
		return fmt.Errorf("JSONB.Scan: expected []byte or string, got %T", src)
	}
}

func (p JSONB[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *JSONB[T]) GetValue() T {
	return p.Data
}

func (p JSONB[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Data)
}

func (p *JSONB[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &p.Data)
}

// NullJSONB is a JSONB column that may be NULL.
type NullJSONB struct {
	Data  any
	Valid bool
}

func (n *NullJSONB) Scan(src any) error {
	n.Data, n.Valid = nil, false
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("NullJSONB.Scan: expected []byte or string, got %T", src)
	}
	if err := json.Unmarshal(b, &n.Data); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n NullJSONB) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	b, err := json.Marshal(n.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
