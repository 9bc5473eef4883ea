package naming

import (
	"strings"
	"unicode"
)

// Convention selects how field and form names are spelled by adapters.
type Convention int

const (
	// Keep leaves names as the engine produced them (snake case).
	Keep Convention = iota
	SnakeCase
	PascalCase
)

func (c Convention) String() string {
	switch c {
	case SnakeCase:
		return "snake"
	case PascalCase:
		return "pascal"
	default:
		return "keep"
	}
}

// ParseConvention accepts "snake", "pascal" or "keep" (empty means keep).
func ParseConvention(s string) (Convention, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keep":
		return Keep, true
	case "snake":
		return SnakeCase, true
	case "pascal":
		return PascalCase, true
	}
	return Keep, false
}

func (c Convention) Apply(name string) string {
	switch c {
	case SnakeCase:
		return Snake(name)
	case PascalCase:
		return Pascal(name)
	default:
		return name
	}
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
}

// Snake converts camelCase, PascalCase and dotted or dashed names to
// lower snake case. Runs of separators collapse into one underscore.
func Snake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)

	pending := false
	for i, r := range runes {
		if isSeparator(r) {
			pending = b.Len() > 0
			continue
		}
		if unicode.IsUpper(r) && b.Len() > 0 && !pending {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				pending = true
			}
		}
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Pascal converts a name to PascalCase, e.g. "i_communications_details"
// becomes "ICommunicationsDetails".
func Pascal(name string) string {
	parts := strings.Split(Snake(name), "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
