package flatfile

import (
	"fmt"

	"github.com/synaptica-ai/prelude-parser/pkg/xmltree"
)

var (
	ErrNotFound        = xmltree.ErrNotFound
	ErrInvalidFileType = xmltree.ErrInvalidFileType
	ErrParsing         = xmltree.ErrParsing
)

// SchemaError reports well-formed XML that does not follow the export
// layout, such as a form without a required identity field.
type SchemaError struct {
	Form   string
	Field  string
	Line   int
	Reason string
}

func (e *SchemaError) Error() string {
	msg := "invalid export"
	if e.Form != "" {
		msg += fmt.Sprintf(": form %q", e.Form)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	return msg + ": " + e.Reason
}

func (e *SchemaError) Unwrap() error {
	return ErrParsing
}
