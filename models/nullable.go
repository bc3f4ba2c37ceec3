package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"strconv"
)

// Unknown is the sentinel for a categorical attribute that was present in the
// title but could not be recognised against the vocabulary.
const Unknown = "UNKNOWN"

// Number is the set of numeric attribute types that can be left unextracted.
type Number interface {
	~int | ~float64
}

// Nullable holds a numeric attribute that may be missing. The zero value is
// null, so "not extracted" never collapses into a legitimate 0.
type Nullable[T Number] struct {
	V     T
	Valid bool
}

// Some wraps an extracted value.
func Some[T Number](v T) Nullable[T] {
	return Nullable[T]{V: v, Valid: true}
}

// Null returns an unextracted value.
func Null[T Number]() Nullable[T] {
	return Nullable[T]{}
}

// Equal reports whether both values are null or both hold the same number.
func (n Nullable[T]) Equal(o Nullable[T]) bool {
	if n.Valid != o.Valid {
		return false
	}
	return !n.Valid || n.V == o.V
}

// String renders the value for CSV export and key building; null is "".
func (n Nullable[T]) String() string {
	if !n.Valid {
		return ""
	}
	switch v := any(n.V).(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.V)
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Nullable[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// Value implements driver.Valuer so nulls reach the database as SQL NULL.
func (n Nullable[T]) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	switch v := any(n.V).(type) {
	case int:
		return int64(v), nil
	case float64:
		return v, nil
	}
	return float64(n.V), nil
}
