// Package dataset provides an immutable, column-named table used by every stage
// of the bronze -> silver pipeline.
package dataset

import (
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindTimestamp
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TimestampLayout is the canonical textual form of a timestamp cell.
const TimestampLayout = "2006-01-02 15:04:05"

// Value is a single nullable cell.
type Value struct {
	kind Kind
	str  string
	num  int64
	ts   time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, num: i} }

// Timestamp returns a timestamp value normalised to UTC.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t.UTC().Round(0)} }

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Int returns the integer payload.
func (v Value) Int() (int64, bool) { return v.num, v.kind == KindInt }

// Time returns the timestamp payload.
func (v Value) Time() (time.Time, bool) { return v.ts, v.kind == KindTimestamp }

// Text renders v as text. Null renders as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindTimestamp:
		return v.ts.Format(TimestampLayout)
	default:
		return ""
	}
}

// Equal reports whether v and o hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	default:
		return true
	}
}

// Compare orders null first, then by kind, then by payload.
// It returns -1, 0 or +1.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindString:
		switch {
		case v.str < o.str:
			return -1
		case v.str > o.str:
			return 1
		}
	case KindInt:
		switch {
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		}
	case KindTimestamp:
		return v.ts.Compare(o.ts)
	}
	return 0
}

type valueKey struct {
	kind Kind
	text string
}

func (v Value) key() valueKey {
	if v.kind == KindTimestamp {
		return valueKey{kind: v.kind, text: v.ts.Format(time.RFC3339Nano)}
	}
	return valueKey{kind: v.kind, text: v.Text()}
}

// GoString helps test failure output.
func (v Value) GoString() string {
	if v.kind == KindNull {
		return "null"
	}
	return fmt.Sprintf("%s(%q)", v.kind, v.Text())
}
