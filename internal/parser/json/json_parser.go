// Package json decodes API payloads and local exports into the loose
// element slices consumed by the normalizer.
//
// Accepted shapes:
//
//   - a top-level array: [ {...}, {...} ]
//   - newline-delimited values (NDJSON):
//     {"id":1,"title":"a"}
//     {"id":2,"title":"b"}
//   - an envelope object whose array lives under Options.Envelope:
//     {"products": [ {...} ], "total": 20}
//
// Elements are returned as decoded, objects included, so the caller decides
// what a non-object element means. Numbers arrive as json.Number.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrEnvelope is returned when Options.Envelope names a key that is missing
// or does not hold an array.
var ErrEnvelope = errors.New("json parser: envelope")

// Options controls how top-level values are expanded.
type Options struct {
	// AllowArrays expands a top-level array into its elements. When false a
	// top-level array is an error.
	AllowArrays bool
	// Envelope, when set, names the key of a top-level object holding the
	// element array.
	Envelope string
}

// Decoder reads top-level JSON values one at a time.
type Decoder struct {
	dec *json.Decoder
	opt Options
}

// NewDecoder constructs a Decoder from an io.Reader and Options.
func NewDecoder(r io.Reader, opt Options) *Decoder {
	d := json.NewDecoder(r)
	d.UseNumber()
	return &Decoder{dec: d, opt: opt}
}

// Next returns the next top-level value. io.EOF marks the end of the stream.
func (d *Decoder) Next() (any, error) {
	var v any
	if err := d.dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("json parser: decode: %w", err)
	}
	return v, nil
}

// DecodeAll reads every top-level value from r and flattens arrays and
// envelopes into one element slice. Empty input yields (nil, nil).
func (d *Decoder) DecodeAll() ([]any, error) {
	var out []any
	for n := 0; ; n++ {
		v, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", n, err)
		}
		elems, err := d.expand(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", n, err)
		}
		out = append(out, elems...)
	}
}

func (d *Decoder) expand(v any) ([]any, error) {
	if d.opt.Envelope != "" {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: want object with %q, got %T", ErrEnvelope, d.opt.Envelope, v)
		}
		arr, ok := obj[d.opt.Envelope].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: key %q is not an array", ErrEnvelope, d.opt.Envelope)
		}
		return arr, nil
	}
	if arr, ok := v.([]any); ok {
		if !d.opt.AllowArrays {
			return nil, fmt.Errorf("json parser: top-level array encountered but allow_arrays=false")
		}
		return arr, nil
	}
	return []any{v}, nil
}

// DecodeAll is a convenience wrapper around NewDecoder(r, opt).DecodeAll.
func DecodeAll(r io.Reader, opt Options) ([]any, error) {
	return NewDecoder(r, opt).DecodeAll()
}

// DecodeBytes decodes b the way DecodeAll decodes a reader.
func DecodeBytes(b []byte, opt Options) ([]any, error) {
	return DecodeAll(bytes.NewReader(b), opt)
}
