// Package analyze aggregates enriched rows into per-seller metrics and a
// marketplace-wide summary. It is pure computation over in-memory rows.
package analyze

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"omnicart/internal/domain"
)

// ErrMalformedRow reports a row carrying a non-finite number. Rows are
// expected to come out of the enricher already coerced, so this is a bug
// upstream rather than bad input.
var ErrMalformedRow = errors.New("malformed enriched row")

// MaxTopCategories bounds OverallSummary.TopCategories.
const MaxTopCategories = 3

type group struct {
	revenue    decimal.Decimal
	price      decimal.Decimal
	rating     decimal.Decimal
	quantity   int64
	count      int
	categories []string
	seenCat    map[string]struct{}
	topTitle   string
	topRevenue float64
}

// SellerPerformance groups rows by seller username, with rows lacking one
// collected under domain.UnknownSeller.
func SellerPerformance(rows []domain.EnrichedRecord) (map[string]domain.SellerMetrics, error) {
	if err := check(rows); err != nil {
		return nil, err
	}

	groups := make(map[string]*group)
	for _, r := range rows {
		key := r.SellerKey()
		g, ok := groups[key]
		if !ok {
			g = &group{seenCat: map[string]struct{}{}}
			groups[key] = g
		}

		g.count++
		g.quantity = addSat(g.quantity, r.Quantity)
		g.revenue = g.revenue.Add(decimal.NewFromFloat(r.Revenue))
		g.price = g.price.Add(decimal.NewFromFloat(r.Price))
		if r.Rating != nil {
			g.rating = g.rating.Add(decimal.NewFromFloat(*r.Rating))
		}

		cat := categoryOf(r)
		if _, seen := g.seenCat[cat]; !seen {
			g.seenCat[cat] = struct{}{}
			g.categories = append(g.categories, cat)
		}

		// strict comparison keeps the earliest row on ties
		if g.count == 1 || r.Revenue > g.topRevenue {
			g.topRevenue = r.Revenue
			g.topTitle = titleOf(r)
		}
	}

	out := make(map[string]domain.SellerMetrics, len(groups))
	for key, g := range groups {
		n := decimal.NewFromInt(int64(g.count))
		out[key] = domain.SellerMetrics{
			TotalRevenue: round(g.revenue),
			ProductCount: g.count,
			AvgPrice:     round(g.price.Div(n)),
			Categories:   g.categories,
			TopProduct:   g.topTitle,
			PerformanceMetrics: domain.PerformanceMetrics{
				AvgRating:         round(g.rating.Div(n)),
				TotalQuantitySold: g.quantity,
			},
		}
	}
	return out, nil
}

// Summarize computes the cross-seller summary. The zero summary is returned
// for empty input.
func Summarize(rows []domain.EnrichedRecord) (domain.OverallSummary, error) {
	if err := check(rows); err != nil {
		return domain.OverallSummary{}, err
	}
	if len(rows) == 0 {
		return domain.OverallSummary{}, nil
	}

	var total decimal.Decimal
	sellers := map[string]struct{}{}
	byCat := map[string]decimal.Decimal{}
	for _, r := range rows {
		rev := decimal.NewFromFloat(r.Revenue)
		total = total.Add(rev)
		if r.Username != "" {
			sellers[r.Username] = struct{}{}
		}
		cat := categoryOf(r)
		byCat[cat] = byCat[cat].Add(rev)
	}

	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if c := byCat[cats[i]].Cmp(byCat[cats[j]]); c != 0 {
			return c > 0
		}
		return cats[i] < cats[j]
	})
	if len(cats) > MaxTopCategories {
		cats = cats[:MaxTopCategories]
	}

	top := make(domain.TopCategories, 0, len(cats))
	for _, c := range cats {
		top = append(top, domain.CategoryRevenue{Category: c, Revenue: round(byCat[c])})
	}

	return domain.OverallSummary{
		TotalRevenue:  round(total),
		TotalProducts: len(rows),
		ActiveSellers: len(sellers),
		TopCategories: top,
	}, nil
}

// Report combines SellerPerformance and Summarize.
func Report(rows []domain.EnrichedRecord) (domain.Report, error) {
	perf, err := SellerPerformance(rows)
	if err != nil {
		return domain.Report{}, err
	}
	sum, err := Summarize(rows)
	if err != nil {
		return domain.Report{}, err
	}
	return domain.Report{SellerPerformance: perf, OverallSummary: sum}, nil
}

func check(rows []domain.EnrichedRecord) error {
	for i, r := range rows {
		switch {
		case !finite(r.Price):
			return fmt.Errorf("%w: row %d: price %v", ErrMalformedRow, i, r.Price)
		case !finite(r.Revenue):
			return fmt.Errorf("%w: row %d: revenue %v", ErrMalformedRow, i, r.Revenue)
		case r.Rating != nil && !finite(*r.Rating):
			return fmt.Errorf("%w: row %d: rating %v", ErrMalformedRow, i, *r.Rating)
		}
	}
	return nil
}

// addSat adds non-negative quantities, saturating at math.MaxInt64.
func addSat(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func round(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

func categoryOf(r domain.EnrichedRecord) string {
	if r.Category == "" {
		return domain.UnknownCategory
	}
	return r.Category
}

func titleOf(r domain.EnrichedRecord) string {
	if r.Title == "" {
		return domain.UnknownTitle
	}
	return r.Title
}
