// Package flatfile turns Prelude EDC flat XML exports into flat records.
//
// An export has one root element. Leaf children of the root are
// document-level metadata applied to every form; the other children are
// form nodes whose leaf descendants are the form's fields:
//
//	<export>
//	  <communications>
//	    <studyName>PBS</studyName>
//	    <siteName>Some Site</siteName>
//	    <patientId>1681574905819</patientId>
//	    <formNumber></formNumber>
//	    <communicationsMade>Yes</communicationsMade>
//	  </communications>
//	  <i_communications_details>
//	    ...
//	  </i_communications_details>
//	</export>
//
// Forms whose name starts with "i_" repeat: every occurrence is one
// iteration and receives the 1-based index field "i".
package flatfile

import (
	"github.com/synaptica-ai/prelude-parser/pkg/xmltree"
)

type options struct {
	required []MetadataField
}

type Option func(*options)

// WithRequired replaces the metadata fields a form must carry with a
// non-null value. Passing no fields disables the check.
func WithRequired(fields ...MetadataField) Option {
	return func(o *options) {
		o.required = append([]MetadataField(nil), fields...)
	}
}

// DefaultRequired is the required set used when WithRequired is not given.
// Metadata is always present but may be null, so nothing is required.
func DefaultRequired() []MetadataField {
	return nil
}

func buildOptions(opts []Option) options {
	o := options{required: DefaultRequired()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ParseFile reads and flattens the export at path.
func ParseFile(path string, opts ...Option) (*Dataset, error) {
	root, err := xmltree.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return build(root, buildOptions(opts))
}

// LoadFile returns the raw content of the export at path after the same
// path checks ParseFile makes.
func LoadFile(path string) ([]byte, error) {
	return xmltree.LoadFile(path)
}

func ParseString(doc string, opts ...Option) (*Dataset, error) {
	return Parse([]byte(doc), opts...)
}

// Parse flattens an export held in memory.
func Parse(data []byte, opts ...Option) (*Dataset, error) {
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, err
	}
	return build(root, buildOptions(opts))
}

func build(root *xmltree.Node, o options) (*Dataset, error) {
	doc, err := classify(root)
	if err != nil {
		return nil, err
	}
	return flatten(doc, o)
}
