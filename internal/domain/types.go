package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row maps column names to decoded values: string, int64, float64, bool,
// time.Time or nil.
type Row map[string]interface{}

// Rows is an ordered query result. An empty result is a non-nil empty slice.
type Rows []Row

// Has reports whether the row carries the column at all, NULL included.
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// String returns the column rendered as text, or "" when missing or NULL.
func (r Row) String(column string) string {
	v, ok := r[column]
	if !ok || v == nil {
		return ""
	}
	return ValueString(v)
}

// Int64 returns the column as an integer.
func (r Row) Int64(column string) (int64, error) {
	v, ok := r[column]
	if !ok {
		return 0, &ColumnNotFoundError{Column: column}
	}
	return ValueInt64(v)
}

// ValueString renders a decoded column value as text.
func ValueString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}

// ValueInt64 converts a decoded column value to an integer.
func ValueInt64(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case float64:
		if val != float64(int64(val)) {
			return 0, fmt.Errorf("value %v is not an integer", val)
		}
		return int64(val), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
	case nil:
		return 0, fmt.Errorf("value is NULL")
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", val, val)
	}
}

// Lookup is the outcome of a single-value lookup. Found is false both when
// nothing matched and when the lookup failed; Err tells the two apart.
type Lookup[T any] struct {
	Value T     `json:"value"`
	Found bool  `json:"found"`
	Err   error `json:"-"`
}

// Failed reports whether the lookup errored rather than simply missing.
func (l Lookup[T]) Failed() bool {
	return l.Err != nil
}

// MarshalJSON renders the error as text so API callers can tell a failed
// lookup from a miss.
func (l Lookup[T]) MarshalJSON() ([]byte, error) {
	out := struct {
		Value T      `json:"value"`
		Found bool   `json:"found"`
		Error string `json:"error,omitempty"`
	}{Value: l.Value, Found: l.Found}
	if l.Err != nil {
		out.Error = l.Err.Error()
	}
	return json.Marshal(out)
}

// LookupOf builds a Lookup from an accessor result, folding ErrNotFound into
// a plain miss.
func LookupOf[T any](value T, err error) Lookup[T] {
	if err == nil {
		return Lookup[T]{Value: value, Found: true}
	}
	var zero T
	if isNotFound(err) {
		return Lookup[T]{Value: zero}
	}
	return Lookup[T]{Value: zero, Err: err}
}
