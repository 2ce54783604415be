package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PerformanceMetrics are the rating and volume figures of one seller.
type PerformanceMetrics struct {
	AvgRating         float64 `json:"avg_rating"`
	TotalQuantitySold int64   `json:"total_quantity_sold"`
}

// SellerMetrics aggregates every enriched row of one seller.
type SellerMetrics struct {
	TotalRevenue       float64            `json:"total_revenue"`
	ProductCount       int                `json:"product_count"`
	AvgPrice           float64            `json:"avg_price"`
	Categories         []string           `json:"categories"`
	TopProduct         string             `json:"top_product"`
	PerformanceMetrics PerformanceMetrics `json:"performance_metrics"`
}

// CategoryRevenue is the summed revenue of one category.
type CategoryRevenue struct {
	Category string
	Revenue  float64
}

// TopCategories is a ranked category list. It serializes as a JSON object
// whose keys keep the rank order, which a Go map cannot express.
type TopCategories []CategoryRevenue

// MarshalJSON implements json.Marshaler.
func (tc TopCategories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range tc {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalNoEscape(c.Category)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Revenue)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler and keeps the document order.
func (tc *TopCategories) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*tc = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("top_categories: expected object, got %v", tok)
	}
	out := TopCategories{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var rev float64
		if err := dec.Decode(&rev); err != nil {
			return fmt.Errorf("top_categories[%q]: %w", key, err)
		}
		out = append(out, CategoryRevenue{Category: key, Revenue: rev})
	}
	*tc = out
	return nil
}

// OverallSummary describes the whole marketplace for one run.
type OverallSummary struct {
	TotalRevenue  float64       `json:"total_revenue"`
	TotalProducts int           `json:"total_products"`
	ActiveSellers int           `json:"active_sellers"`
	TopCategories TopCategories `json:"top_categories"`
}

// IsEmpty reports whether the summary was computed over no rows.
func (s OverallSummary) IsEmpty() bool { return s.TotalProducts == 0 }

type summaryAlias OverallSummary

// MarshalJSON renders an empty summary as {}.
func (s OverallSummary) MarshalJSON() ([]byte, error) {
	if s.IsEmpty() {
		return []byte("{}"), nil
	}
	a := summaryAlias(s)
	if a.TopCategories == nil {
		a.TopCategories = TopCategories{}
	}
	return marshalNoEscape(a)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *OverallSummary) UnmarshalJSON(b []byte) error {
	var a summaryAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*s = OverallSummary(a)
	return nil
}

// Report is the document handed to sinks. Go marshals map keys in sorted
// order, so seller_performance is emitted lexicographically by seller.
type Report struct {
	SellerPerformance map[string]SellerMetrics `json:"seller_performance"`
	OverallSummary    OverallSummary           `json:"overall_summary"`
}

// EmptyReport is the report of a run that had nothing to analyze.
func EmptyReport() Report {
	return Report{SellerPerformance: map[string]SellerMetrics{}}
}

// MarshalIndent encodes r with two-space indentation, keeping non-ASCII
// and HTML characters as-is.
func (r Report) MarshalIndent() ([]byte, error) {
	if r.SellerPerformance == nil {
		r.SellerPerformance = map[string]SellerMetrics{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
