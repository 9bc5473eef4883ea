package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindDate
	KindText
)

var kindNames = [...]string{
	KindNull:    "null",
	KindInteger: "integer",
	KindFloat:   "float",
	KindDate:    "date",
	KindText:    "text",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return KindNull, fmt.Errorf("unknown value kind %q", s)
}

// DateLayout is the layout dates are rendered with outside the engine.
const DateLayout = "2006-01-02"

// Value is a typed field value. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	t    time.Time
	s    string
}

func Null() Value               { return Value{} }
func Integer(i int64) Value     { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func Text(s string) Value       { return Value{kind: KindText, s: s} }
func Date(t time.Time) Value    { return Value{kind: KindDate, t: truncateDay(t)} }
func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) Int() int64      { return v.i }
func (v Value) Float() float64  { return v.f }
func (v Value) Time() time.Time { return v.t }
func (v Value) Text() string    { return v.s }

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Interface returns the value as int64, float64, time.Time, string or nil.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindDate:
		return v.t
	case KindText:
		return v.s
	default:
		return nil
	}
}

// String renders the canonical text form. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDate:
		return v.t.Format(DateLayout)
	case KindText:
		return v.s
	default:
		return ""
	}
}

// Key identifies the value for grouping and joins. Values of different
// kinds never share a key and Null keys equal each other.
func (v Value) Key() string {
	return v.kind.String() + ":" + v.String()
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDate:
		return v.t.Equal(o.t)
	case KindText:
		return v.s == o.s
	default:
		return true
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger, KindFloat, KindText:
		return json.Marshal(v.Interface())
	case KindDate:
		return json.Marshal(v.String())
	default:
		return []byte("null"), nil
	}
}

// FromCanonical rebuilds a value from its kind and String form.
func FromCanonical(kind Kind, s string) (Value, error) {
	switch kind {
	case KindNull:
		return Null(), nil
	case KindInteger:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("decoding integer value: %w", err)
		}
		return Integer(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("decoding float value: %w", err)
		}
		return Float(f), nil
	case KindDate:
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return Value{}, fmt.Errorf("decoding date value: %w", err)
		}
		return Date(t), nil
	case KindText:
		return Text(s), nil
	}
	return Value{}, fmt.Errorf("unknown value kind %d", kind)
}
