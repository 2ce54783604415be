package builtin

import (
	"fmt"
	"strings"

	"omnicart/pkg/records"
)

// DeDup collapses records sharing the same key. With Policy "keep-first"
// (the default) the earliest occurrence wins; with "keep-last" the latest
// does. Output keeps the input order of the winners. Records missing a key
// field are passed through untouched.
//
// Keys are compared on their canonical text, so run DeDup after values have
// been normalized.
type DeDup struct {
	Keys   []string
	Policy string
}

// Apply implements transformer.Transformer.
func (d DeDup) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(d.Keys) == 0 {
		return in
	}
	keepLast := strings.EqualFold(strings.TrimSpace(d.Policy), "keep-last")

	winner := make(map[string]int, len(in))
	for i, r := range in {
		key, ok := d.keyOf(r)
		if !ok {
			continue
		}
		if _, seen := winner[key]; !seen || keepLast {
			winner[key] = i
		}
	}

	out := make([]records.Record, 0, len(winner))
	for i, r := range in {
		key, ok := d.keyOf(r)
		if !ok || winner[key] == i {
			out = append(out, r)
		}
	}
	return out
}

func (d DeDup) keyOf(r records.Record) (string, bool) {
	var b strings.Builder
	for i, k := range d.Keys {
		v, ok := r[k]
		if !ok || v == nil {
			return "", false
		}
		if i > 0 {
			b.WriteByte('\x1f')
		}
		if s, ok := v.(string); ok {
			b.WriteString(s)
			continue
		}
		b.WriteString(fmt.Sprint(v))
	}
	return b.String(), true
}
