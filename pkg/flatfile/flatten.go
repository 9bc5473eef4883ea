package flatfile

import (
	"github.com/synaptica-ai/prelude-parser/pkg/value"
)

func fieldValue(f rawField) value.Value {
	if !f.present {
		return value.Null()
	}
	return value.Coerce(f.text)
}

func flatten(doc document, o options) (*Dataset, error) {
	ds := newDataset()
	iterations := make(map[string]int)

	for _, form := range doc.forms {
		fields := NewFields()
		for _, f := range doc.meta {
			fields.Set(f.name, fieldValue(f))
		}
		for _, f := range form.fields {
			fields.Set(f.name, fieldValue(f))
		}

		short := usesShortNames(fields)
		for _, m := range Metadata() {
			if !fields.Has(m.Long) && !fields.Has(m.Short) {
				fields.Set(m.Name(short), value.Null())
			}
		}

		for _, m := range o.required {
			if v, _ := lookupMeta(fields, m); v.IsNull() {
				return nil, &SchemaError{
					Form:   form.name,
					Field:  m.Name(short),
					Line:   form.line,
					Reason: "required field missing",
				}
			}
		}

		rec := Record{
			FormName:   form.name,
			Repeating:  form.repeating,
			ShortNames: short,
			Fields:     fields,
		}
		if form.repeating {
			rec.Iteration = nextIteration(iterations, form.name, fields)
			if v, ok := fields.Get(IterationField); ok && v.Kind() == value.KindInteger {
				rec.Iteration = int(v.Int())
			} else {
				fields.Set(IterationField, value.Integer(int64(rec.Iteration)))
			}
		}
		ds.add(rec)
	}
	return ds, nil
}

// nextIteration numbers repeating records per owning main record, which
// is identified by patient id and form number.
func nextIteration(counters map[string]int, form string, fields *Fields) int {
	patient, _ := lookupMeta(fields, PatientID)
	number, _ := lookupMeta(fields, FormNumber)
	key := form + "\x00" + patient.Key() + "\x00" + number.Key()
	counters[key]++
	return counters[key]
}

func lookupMeta(fields *Fields, m MetadataField) (value.Value, bool) {
	if v, ok := fields.Get(m.Long); ok {
		return v, true
	}
	return fields.Get(m.Short)
}

func usesShortNames(fields *Fields) bool {
	long, short := 0, 0
	for _, m := range Metadata() {
		if m.Long == m.Short {
			continue
		}
		if fields.Has(m.Long) {
			long++
		}
		if fields.Has(m.Short) {
			short++
		}
	}
	return short > 0 && long == 0
}
