package autosave

import (
	"encoding/json"
	"reflect"
)

// Fields is the edit buffer for one entity: field name to current value.
// Only autosavable fields belong here (title, content, event metadata);
// ownership and audit fields are the repository's business.
type Fields map[string]any

// Clone deep-copies the fields so callers and the tracker never share
// nested slices or maps.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	bytes, err := json.Marshal(f)
	if err != nil {
		// Fields come from JSON request bodies, so marshalling them back
		// cannot fail in practice. Fall back to a shallow copy.
		out := make(Fields, len(f))
		for k, v := range f {
			out[k] = v
		}
		return out
	}
	var out Fields
	if err := json.Unmarshal(bytes, &out); err != nil {
		out = make(Fields, len(f))
		for k, v := range f {
			out[k] = v
		}
	}
	if out == nil {
		out = Fields{}
	}
	return out
}

// Merge copies the entries of partial into f, overwriting existing keys.
func (f Fields) Merge(partial Fields) {
	for k, v := range partial {
		f[k] = v
	}
}

// Equal compares two field sets structurally. JSON normalization makes the
// comparison insensitive to the concrete Go types produced by decoding
// (e.g. int vs float64 for the same number).
func Equal(a, b Fields) bool {
	aBytes, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bBytes, err := json.Marshal(b)
	if err != nil {
		return false
	}

	var aVal, bVal map[string]interface{}
	if err := json.Unmarshal(aBytes, &aVal); err != nil {
		return false
	}
	if err := json.Unmarshal(bBytes, &bVal); err != nil {
		return false
	}

	return reflect.DeepEqual(aVal, bVal)
}
