package builtin

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Warning records a field that was present but unusable and was replaced by
// a default. Absent fields default silently and produce no warning.
type Warning struct {
	Index  int // record position in its input batch
	Field  string
	Value  any
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("record %d: %s=%v: %s", w.Index, w.Field, w.Value, w.Reason)
}

// Coercer converts loosely-typed JSON values into Go scalars, collecting a
// Warning for every value it had to replace. One Coercer serves one record.
type Coercer struct {
	Index    int
	Warnings []Warning
}

func (c *Coercer) warn(field string, v any, reason string) {
	c.Warnings = append(c.Warnings, Warning{Index: c.Index, Field: field, Value: v, Reason: reason})
}

// NonNegativeFloat returns v as a finite, non-negative float64. Missing or
// null values yield 0 silently; anything else unusable yields 0 with a warning.
func (c *Coercer) NonNegativeFloat(field string, v any, present bool) float64 {
	if !present || v == nil {
		return 0
	}
	f, ok := ParseFloat(v)
	switch {
	case !ok:
		c.warn(field, v, "not a number, using 0")
		return 0
	case f < 0:
		c.warn(field, v, "negative, using 0")
		return 0
	}
	return f
}

// OptionalFloat returns v as a finite float64, or nil when it is missing,
// null, or unusable (the latter with a warning).
func (c *Coercer) OptionalFloat(field string, v any, present bool) *float64 {
	if !present || v == nil {
		return nil
	}
	f, ok := ParseFloat(v)
	if !ok {
		c.warn(field, v, "not a number, using null")
		return nil
	}
	return &f
}

// NonNegativeInt returns v as a non-negative integer. Fractional values are
// truncated toward zero with a warning.
func (c *Coercer) NonNegativeInt(field string, v any, present bool) int64 {
	if !present || v == nil {
		return 0
	}
	f, ok := ParseFloat(v)
	switch {
	case !ok:
		c.warn(field, v, "not a number, using 0")
		return 0
	case f < 0:
		c.warn(field, v, "negative, using 0")
		return 0
	case f >= math.MaxInt64:
		c.warn(field, v, "out of range, using 0")
		return 0
	}
	n := int64(f)
	if float64(n) != f {
		c.warn(field, v, "fractional, truncated")
	}
	return n
}

// String returns v as a string, or def when it is missing, null, or empty.
// Numbers and booleans are rendered as text; objects and arrays fall back
// to def with a warning.
func (c *Coercer) String(field string, v any, present bool, def string) string {
	if !present || v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return def
		}
		return t
	case json.Number:
		return t.String()
	case bool, float64, float32, int, int64, int32:
		return fmt.Sprint(t)
	default:
		c.warn(field, v, "not a scalar, using default")
		return def
	}
}

// ID returns v as a canonical identity string. Integral numbers, whether
// encoded as numbers or numeric strings, render without a fraction so 1,
// 1.0, and "1" compare equal. Missing or null values yield "".
func (c *Coercer) ID(field string, v any, present bool) string {
	if !present || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if id, ok := integralID(f); ok {
				return id
			}
		}
		return s
	case bool, map[string]any, []any:
		c.warn(field, v, "not an identifier, using null")
		return ""
	}
	f, ok := ParseFloat(v)
	if !ok {
		c.warn(field, v, "not an identifier, using null")
		return ""
	}
	if id, ok := integralID(f); ok {
		return id
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func integralID(f float64) (string, bool) {
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

// ParseFloat converts JSON numbers, Go numeric types, and numeric strings to
// a finite float64. NaN and infinities are rejected.
func ParseFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
