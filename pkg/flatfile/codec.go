package flatfile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/synaptica-ai/prelude-parser/pkg/value"
)

// MarshalJSON writes {"form": [{field: value, ...}, ...], ...} with forms,
// records and fields in document order. Kinds are not preserved; use
// EncodeDataset for a lossless form.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, form := range d.Forms() {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(form)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(":[")
		for j, rec := range d.forms[form] {
			if j > 0 {
				buf.WriteByte(',')
			}
			fields, err := rec.Fields.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(fields)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type wireField struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

type wireRecord struct {
	Form       string      `json:"form"`
	Repeating  bool        `json:"repeating,omitempty"`
	Iteration  int         `json:"iteration,omitempty"`
	ShortNames bool        `json:"short_names,omitempty"`
	Fields     []wireField `json:"fields"`
}

// EncodeFields writes fields as an ordered list of name, kind and
// canonical value.
func EncodeFields(f *Fields) ([]byte, error) {
	return json.Marshal(toWireFields(f))
}

func DecodeFields(data []byte) (*Fields, error) {
	var wire []wireField
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	return fromWireFields(wire)
}

// EncodeDataset writes a lossless encoding read back by DecodeDataset.
func EncodeDataset(d *Dataset) ([]byte, error) {
	records := make([]wireRecord, 0, d.Len())
	for _, form := range d.Forms() {
		for _, rec := range d.forms[form] {
			records = append(records, wireRecord{
				Form:       rec.FormName,
				Repeating:  rec.Repeating,
				Iteration:  rec.Iteration,
				ShortNames: rec.ShortNames,
				Fields:     toWireFields(rec.Fields),
			})
		}
	}
	return json.Marshal(records)
}

func DecodeDataset(data []byte) (*Dataset, error) {
	var records []wireRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	ds := newDataset()
	for _, w := range records {
		fields, err := fromWireFields(w.Fields)
		if err != nil {
			return nil, err
		}
		ds.add(Record{
			FormName:   w.Form,
			Repeating:  w.Repeating,
			Iteration:  w.Iteration,
			ShortNames: w.ShortNames,
			Fields:     fields,
		})
	}
	return ds, nil
}

func toWireFields(f *Fields) []wireField {
	out := make([]wireField, 0, f.Len())
	for name, v := range f.All() {
		out = append(out, wireField{Name: name, Kind: v.Kind().String(), Value: v.String()})
	}
	return out
}

func fromWireFields(wire []wireField) (*Fields, error) {
	fields := NewFields()
	for _, w := range wire {
		kind, err := value.ParseKind(w.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", w.Name, err)
		}
		v, err := value.FromCanonical(kind, w.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", w.Name, err)
		}
		fields.Set(w.Name, v)
	}
	return fields, nil
}
