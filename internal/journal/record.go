// Package journal turns the game's line-oriented JSON journal into typed
// Records and follows the journal directory as the game appends to it.
package journal

import (
	"encoding/json"
	"strconv"
	"time"
)

// Fields is the decoded field bag of one journal line. The accessors never
// panic: a missing key or a value of the wrong type yields the zero value.
type Fields map[string]any

// Record is one decoded journal line. Records are immutable once decoded.
type Record struct {
	Kind      string
	Timestamp time.Time
	Fields
}

// NewRecord builds a record; handy for tests and synthetic input.
func NewRecord(kind string, ts time.Time, fields Fields) Record {
	if fields == nil {
		fields = Fields{}
	}
	return Record{Kind: kind, Timestamp: ts, Fields: fields}
}

// Has reports whether key is present, even with a null value
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// String returns the string value for key
func (f Fields) String(key string) string {
	if s, ok := f[key].(string); ok {
		return s
	}
	return ""
}

// ID returns an identifier that the journal may write as a number or a string
func (f Fields) ID(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	}
	if n, ok := f.IntOK(key); ok {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// Int returns the integer value for key. Floats are truncated and numeric
// strings are parsed, since the decoder keeps numbers as json.Number.
func (f Fields) Int(key string) int64 {
	n, _ := f.IntOK(key)
	return n
}

// IntOK is Int with a presence flag
func (f Fields) IntOK(key string) (int64, bool) {
	switch v := f[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if fl, err := v.Float64(); err == nil {
			return int64(fl), true
		}
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Float returns the floating point value for key
func (f Fields) Float(key string) float64 {
	switch v := f[key].(type) {
	case json.Number:
		fl, _ := v.Float64()
		return fl
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns the boolean value for key
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Object returns a nested object, or nil
func (f Fields) Object(key string) Fields {
	switch v := f[key].(type) {
	case map[string]any:
		return Fields(v)
	case Fields:
		return v
	}
	return nil
}

// List returns the objects of an array value. Non-object elements are skipped.
func (f Fields) List(key string) []Fields {
	var out []Fields
	switch v := f[key].(type) {
	case []any:
		for _, item := range v {
			switch obj := item.(type) {
			case map[string]any:
				out = append(out, Fields(obj))
			case Fields:
				out = append(out, obj)
			}
		}
	case []Fields:
		out = append(out, v...)
	case []map[string]any:
		for _, obj := range v {
			out = append(out, Fields(obj))
		}
	}
	return out
}

// Strings returns the string elements of an array value
func (f Fields) Strings(key string) []string {
	var out []string
	switch v := f[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	}
	return out
}
