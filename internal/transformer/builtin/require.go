package builtin

import "omnicart/pkg/records"

// Require removes any record missing a value for one of Fields. A value is
// missing when absent, null, or an empty string.
type Require struct {
	Fields []string
}

// Apply returns a filtered slice that reuses the input's backing array.
func (r Require) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, rec := range in {
		ok := true
		for _, f := range r.Fields {
			v, exists := rec[f]
			if !exists || v == nil || v == "" {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}
