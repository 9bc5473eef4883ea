package merge

import (
	"errors"
	"fmt"

	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/value"
)

var (
	ErrMerge       = errors.New("merge failure")
	ErrUnknownForm = errors.New("form not in dataset")
)

// Key joins a repeating record to its main record.
type Key struct {
	PatientID  value.Value
	FormNumber value.Value
}

func (k Key) id() string {
	return k.PatientID.Key() + "\x00" + k.FormNumber.Key()
}

func (k Key) String() string {
	number := "<null>"
	if !k.FormNumber.IsNull() {
		number = k.FormNumber.String()
	}
	return fmt.Sprintf("patient_id=%s form_number=%s", k.PatientID.String(), number)
}

// KeyError reports a record whose key matched zero or several main
// records, or a record without a patient id.
type KeyError struct {
	Key     Key
	Side    string
	Index   int
	Matches int
	Reason  string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s record %d (%s): %s", e.Side, e.Index, e.Key, e.Reason)
}

func (e *KeyError) Unwrap() error {
	return ErrMerge
}

type Options struct {
	// ShortNames selects the short metadata spellings for the key and the
	// default shared fields.
	ShortNames bool
	// SharedFields are dropped from subordinate records before merging.
	// Nil means DefaultSharedFields(ShortNames); an empty non-nil slice
	// drops nothing.
	SharedFields []string
}

// DefaultSharedFields is every metadata field in the selected spelling.
func DefaultSharedFields(short bool) []string {
	return flatfile.MetadataNames(short)
}

func (o Options) shared() map[string]struct{} {
	names := o.SharedFields
	if names == nil {
		names = DefaultSharedFields(o.ShortNames)
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func keyOf(rec flatfile.Record, short bool) (Key, bool) {
	patient := rec.Get(flatfile.PatientID.Name(short))
	number := rec.Get(flatfile.FormNumber.Name(short))
	return Key{PatientID: patient, FormNumber: number}, !patient.IsNull()
}

// Merge joins every subordinate record onto the main record sharing its
// patient id and form number. The result has one record per subordinate
// record, in subordinate order: the main record's fields followed by the
// subordinate's fields minus the shared ones. Inputs are not modified.
func Merge(main, sub []flatfile.Record, opts Options) ([]flatfile.Record, error) {
	index := make(map[string][]int, len(main))
	for i, rec := range main {
		key, ok := keyOf(rec, opts.ShortNames)
		if !ok {
			return nil, &KeyError{Key: key, Side: "main", Index: i, Reason: "missing patient id"}
		}
		index[key.id()] = append(index[key.id()], i)
	}

	shared := opts.shared()
	out := make([]flatfile.Record, 0, len(sub))
	for i, rec := range sub {
		key, ok := keyOf(rec, opts.ShortNames)
		if !ok {
			return nil, &KeyError{Key: key, Side: "subordinate", Index: i, Reason: "missing patient id"}
		}
		matches := index[key.id()]
		switch len(matches) {
		case 1:
		case 0:
			return nil, &KeyError{Key: key, Side: "subordinate", Index: i, Reason: "no matching main record"}
		default:
			return nil, &KeyError{Key: key, Side: "subordinate", Index: i, Matches: len(matches),
				Reason: fmt.Sprintf("%d matching main records", len(matches))}
		}

		merged := main[matches[0]].Fields.Clone()
		for name, v := range rec.Fields.All() {
			if _, drop := shared[name]; drop {
				continue
			}
			merged.Set(name, v)
		}
		out = append(out, flatfile.Record{
			FormName:   rec.FormName,
			Repeating:  rec.Repeating,
			Iteration:  rec.Iteration,
			ShortNames: opts.ShortNames,
			Fields:     merged,
		})
	}
	return out, nil
}

// MergeForms merges two forms of one dataset.
func MergeForms(ds *flatfile.Dataset, mainForm, subForm string, opts Options) ([]flatfile.Record, error) {
	for _, form := range []string{mainForm, subForm} {
		if !ds.Has(form) {
			return nil, fmt.Errorf("%q: %w", form, ErrUnknownForm)
		}
	}
	return Merge(ds.Records(mainForm), ds.Records(subForm), opts)
}
