package flatfile

import (
	"strings"

	"github.com/synaptica-ai/prelude-parser/pkg/naming"
	"github.com/synaptica-ai/prelude-parser/pkg/xmltree"
)

type rawField struct {
	name    string
	text    string
	present bool
}

type formNode struct {
	name      string
	repeating bool
	line      int
	fields    []rawField
}

type document struct {
	meta  []rawField
	forms []formNode
}

// classify splits the root's children into document metadata and form
// occurrences. A leaf child is metadata only when it names a metadata field
// that is never used as a form; any other leaf is an empty form occurrence.
func classify(root *xmltree.Node) (document, error) {
	forms := make(map[string]struct{})
	for _, child := range root.Children {
		if !child.IsLeaf() {
			forms[naming.Snake(child.Name)] = struct{}{}
		}
	}

	var doc document
	for _, child := range root.Children {
		name := naming.Snake(child.Name)
		if child.IsLeaf() && isDocumentMetadata(name, forms) {
			f, err := leafField(child, "", "")
			if err != nil {
				return document{}, err
			}
			doc.meta = append(doc.meta, f)
			continue
		}

		if name == "" || name+"_" == RepeatingPrefix {
			return document{}, &SchemaError{Line: child.Line, Reason: "form element <" + child.Name + "> has no usable name"}
		}
		form := formNode{
			name:      name,
			repeating: strings.HasPrefix(name, RepeatingPrefix),
			line:      child.Line,
		}
		fields, err := collectFields(child, "", name)
		if err != nil {
			return document{}, err
		}
		form.fields = fields
		doc.forms = append(doc.forms, form)
	}
	return doc, nil
}

func isDocumentMetadata(name string, forms map[string]struct{}) bool {
	if _, isForm := forms[name]; isForm {
		return false
	}
	_, ok := LookupMetadata(name)
	return ok
}

// collectFields flattens the element children of n. Nested groups prefix
// their leaf names with the group name.
func collectFields(n *xmltree.Node, prefix, form string) ([]rawField, error) {
	var out []rawField
	for _, c := range n.Children {
		if c.IsLeaf() {
			f, err := leafField(c, prefix, form)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
			continue
		}
		group := joinName(prefix, naming.Snake(c.Name))
		if group == "" {
			return nil, &SchemaError{Form: form, Line: c.Line, Reason: "field group <" + c.Name + "> has no usable name"}
		}
		nested, err := collectFields(c, group, form)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func leafField(n *xmltree.Node, prefix, form string) (rawField, error) {
	local := naming.Snake(n.Name)
	if local == "" {
		return rawField{}, &SchemaError{Form: form, Line: n.Line, Reason: "field element <" + n.Name + "> has no usable name"}
	}
	return rawField{
		name:    joinName(prefix, local),
		text:    n.Text,
		present: n.HasText,
	}, nil
}

func joinName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return ""
	}
	return prefix + "_" + name
}
