package flatfile

import (
	"bytes"
	"encoding/json"
	"iter"

	"github.com/synaptica-ai/prelude-parser/pkg/value"
)

// Fields maps field names to values and remembers insertion order.
// Setting an existing name replaces its value but keeps its position.
type Fields struct {
	keys   []string
	values map[string]value.Value
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]value.Value)}
}

func (f *Fields) Set(name string, v value.Value) {
	if f.values == nil {
		f.values = make(map[string]value.Value)
	}
	if _, ok := f.values[name]; !ok {
		f.keys = append(f.keys, name)
	}
	f.values[name] = v
}

func (f *Fields) Get(name string) (value.Value, bool) {
	if f == nil {
		return value.Value{}, false
	}
	v, ok := f.values[name]
	return v, ok
}

func (f *Fields) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

func (f *Fields) Delete(name string) {
	if f == nil {
		return
	}
	if _, ok := f.values[name]; !ok {
		return
	}
	delete(f.values, name)
	for i, k := range f.keys {
		if k == name {
			f.keys = append(f.keys[:i:i], f.keys[i+1:]...)
			break
		}
	}
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns a copy of the field names in order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

// All yields fields in order.
func (f *Fields) All() iter.Seq2[string, value.Value] {
	return func(yield func(string, value.Value) bool) {
		if f == nil {
			return
		}
		for _, k := range f.keys {
			if !yield(k, f.values[k]) {
				return
			}
		}
	}
}

func (f *Fields) Clone() *Fields {
	out := &Fields{
		keys:   f.Keys(),
		values: make(map[string]value.Value, f.Len()),
	}
	if f != nil {
		for k, v := range f.values {
			out.values[k] = v
		}
	}
	return out
}

// MarshalJSON writes an object whose keys keep field order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, v := range f.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
