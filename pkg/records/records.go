// Package records defines the loosely-typed record shape that flows between
// datasources, parsers, and transformers before it is mapped into typed
// domain values.
package records

// Record is one decoded JSON object. Values are whatever encoding/json
// produced (with UseNumber enabled numbers arrive as json.Number).
type Record map[string]any

// FromAny returns v as a Record when it is a JSON object. It reports false
// for every other shape, including nil.
func FromAny(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, m != nil
	case map[string]any:
		return Record(m), m != nil
	default:
		return nil, false
	}
}

// Lookup returns the value stored under the first of keys present in r.
func (r Record) Lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// Object returns the nested object stored under key. The second result is
// false when the key is absent or holds something other than an object.
func (r Record) Object(key string) (Record, bool) {
	v, ok := r[key]
	if !ok {
		return nil, false
	}
	return FromAny(v)
}

// Clone returns a deep copy of r. Nested objects and arrays are copied so
// transformers can mutate the clone without touching the caller's data.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return Record(t).Clone()
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = cloneValue(e)
		}
		return cp
	default:
		return v
	}
}
