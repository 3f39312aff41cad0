package record

import "strconv"

type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindInt
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	default:
		return "unknown"
	}
}

// Value is a nullable scalar cell: null, string, or integer.
type Value struct {
	kind ValueKind
	str  string
	num  int64
}

func Null() Value { return Value{} }

func String(v string) Value { return Value{kind: KindString, str: v} }

func Int(v int64) Value { return Value{kind: KindInt, num: v} }

// StringPtr maps a missing string to null.
func StringPtr(v *string) Value {
	if v == nil {
		return Null()
	}
	return String(*v)
}

// IntPtr maps a missing integer to null.
func IntPtr(v *int64) Value {
	if v == nil {
		return Null()
	}
	return Int(*v)
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Int64() (int64, bool) {
	return v.num, v.kind == KindInt
}

// Driver returns the value as database/sql expects it: nil, string or int64.
func (v Value) Driver() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	default:
		return nil
	}
}

// Text is the delimited-text form; null is the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	default:
		return ""
	}
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "<null>"
	}
	return v.Text()
}
