// Package transformer defines the record-level transformation contract used
// to clean raw API payloads before they are mapped into domain values.
package transformer

import "omnicart/pkg/records"

// Transformer rewrites a batch of records. Implementations may mutate the
// records in place and may return a shorter slice (filters).
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Func adapts a plain function to the Transformer interface.
type Func func([]records.Record) []records.Record

// Apply implements Transformer.
func (f Func) Apply(in []records.Record) []records.Record { return f(in) }

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every transformer in order, feeding each the previous output.
func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}
