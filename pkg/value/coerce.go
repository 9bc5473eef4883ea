package value

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SourceDateLayout is the only date format the export uses, e.g. "15-Apr-2020".
const SourceDateLayout = "2-Jan-2006"

var (
	floatPattern   = regexp.MustCompile(`^[+-]?(0|[1-9][0-9]*)?\.[0-9]+([eE][+-]?[0-9]+)?$|^[+-]?(0|[1-9][0-9]*)\.$`)
	integerPattern = regexp.MustCompile(`^[+-]?(0|[1-9][0-9]*)$`)
	datePattern    = regexp.MustCompile(`^[0-9]{1,2}-[A-Za-z]{3}-[0-9]{4}$`)
)

// Coerce infers a typed value from raw field text. The first matching rule
// wins: floats (only when the text contains a dot), integers, dates in
// SourceDateLayout, and finally the original text.
func Coerce(s string) Value {
	if strings.Contains(s, ".") {
		if v, ok := coerceFloat(s); ok {
			return v
		}
	} else if v, ok := coerceInteger(s); ok {
		return v
	}
	if v, ok := coerceDate(s); ok {
		return v
	}
	return Text(s)
}

func coerceFloat(s string) (Value, bool) {
	if !floatPattern.MatchString(s) {
		return Value{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, false
	}
	return Float(f), true
}

func coerceInteger(s string) (Value, bool) {
	if !integerPattern.MatchString(s) {
		return Value{}, false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Value{}, false
	}
	return Integer(i), true
}

func coerceDate(s string) (Value, bool) {
	if !datePattern.MatchString(s) {
		return Value{}, false
	}
	t, err := time.Parse(SourceDateLayout, s)
	if err != nil {
		return Value{}, false
	}
	return Date(t), true
}
