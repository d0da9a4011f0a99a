package bankloader

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the kind of a Value.
type Kind int

const (
	// KindNull is an explicit missing value.
	KindNull Kind = iota
	KindInteger
	KindText
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindText:
		return "text"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Value is a single typed cell. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	s    string
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

// Text returns a text value. An empty string is a valid text value; missing
// cells must be represented by Null.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Timestamp returns a timestamp value normalized to UTC.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, t: t.UTC()} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) Int64() int64    { return v.i }
func (v Value) Str() string     { return v.s }
func (v Value) Time() time.Time { return v.t }

// AsInteger coerces v to an integer.
// Text is accepted when it is a base-10 integer or a float without fraction
// ("58" and "58.0" both give 58). Hexadecimal forms are rejected. Nulls and
// timestamps are not integer-like.
func (v Value) AsInteger() (int64, bool) {
	switch v.kind {
	case KindInteger:
		return v.i, true
	case KindText:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if strings.ContainsAny(s, "xX") {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
			return 0, false
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// Equal reports whether v and o hold the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindText:
		return v.s == o.s
	case KindTimestamp:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// String renders v for humans. Null renders as NULL.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindText:
		return v.s
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	default:
		return "NULL"
	}
}

// MarshalJSON encodes v the way BigQuery expects newline-delimited JSON cells.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindText:
		return json.Marshal(v.s)
	case KindTimestamp:
		return json.Marshal(v.t.UTC().Format(time.RFC3339Nano))
	default:
		return []byte("null"), nil
	}
}
