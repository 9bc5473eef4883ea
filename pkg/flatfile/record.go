package flatfile

import (
	"github.com/synaptica-ai/prelude-parser/pkg/naming"
	"github.com/synaptica-ai/prelude-parser/pkg/value"
)

// Record is one flattened form instance.
type Record struct {
	FormName  string
	Repeating bool
	// Iteration is the 1-based iteration index; zero for main forms.
	Iteration int
	// ShortNames is set when the record's metadata used short spellings.
	ShortNames bool
	Fields     *Fields
}

// TypeName is the PascalCase name adapters use for the record's type, e.g.
// "ICommunicationsDetails".
func (r Record) TypeName() string {
	return naming.Pascal(r.FormName)
}

func (r Record) Get(name string) value.Value {
	v, _ := r.Fields.Get(name)
	return v
}

// Meta returns a metadata field using the record's own spelling.
func (r Record) Meta(f MetadataField) value.Value {
	return r.Get(f.Name(r.ShortNames))
}

// Clone returns a record whose fields can be modified independently.
func (r Record) Clone() Record {
	r.Fields = r.Fields.Clone()
	return r
}

// Dataset maps form names to records. Forms keep the order in which they
// first appear in the document and records keep document order.
type Dataset struct {
	order []string
	forms map[string][]Record
}

func newDataset() *Dataset {
	return &Dataset{forms: make(map[string][]Record)}
}

func (d *Dataset) add(rec Record) {
	if _, ok := d.forms[rec.FormName]; !ok {
		d.order = append(d.order, rec.FormName)
	}
	d.forms[rec.FormName] = append(d.forms[rec.FormName], rec)
}

// Forms returns the form names in document order.
func (d *Dataset) Forms() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.order...)
}

func (d *Dataset) Has(form string) bool {
	if d == nil {
		return false
	}
	_, ok := d.forms[form]
	return ok
}

// Records returns copies of the records of one form.
func (d *Dataset) Records(form string) []Record {
	if d == nil {
		return nil
	}
	src := d.forms[form]
	out := make([]Record, len(src))
	for i, r := range src {
		out[i] = r.Clone()
	}
	return out
}

// All returns copies of every record, grouped by form in form order.
func (d *Dataset) All() []Record {
	var out []Record
	for _, form := range d.Forms() {
		out = append(out, d.Records(form)...)
	}
	return out
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, recs := range d.forms {
		n += len(recs)
	}
	return n
}

// Counts returns the number of records per form.
func (d *Dataset) Counts() map[string]int {
	out := make(map[string]int)
	if d == nil {
		return out
	}
	for form, recs := range d.forms {
		out[form] = len(recs)
	}
	return out
}
