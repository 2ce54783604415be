// Package enrich left-joins normalized products with their sellers and
// derives the quantity and revenue columns.
package enrich

import (
	"math"

	"omnicart/internal/domain"
)

// Enrich returns one row per product, in input order. A product whose
// SellerID matches no user keeps the row with empty seller fields and the
// UnknownSeller display name. When users repeat an ID the first one wins.
func Enrich(products []domain.Product, users []domain.User) []domain.EnrichedRecord {
	out := make([]domain.EnrichedRecord, 0, len(products))
	if len(products) == 0 {
		return out
	}

	byID := make(map[domain.ID]domain.User, len(users))
	for _, u := range users {
		if !u.ID.Valid() {
			continue
		}
		if _, seen := byID[u.ID]; !seen {
			byID[u.ID] = u
		}
	}

	for _, p := range products {
		price := p.Price
		if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
			price = 0
		}
		qty := p.RatingCount
		if qty < 0 {
			qty = 0
		}

		row := domain.EnrichedRecord{
			ProductID:  p.ID,
			Title:      p.Title,
			Category:   p.Category,
			Price:      price,
			Rating:     p.Rating,
			SellerID:   p.SellerID,
			Quantity:   qty,
			Revenue:    domain.Revenue(price, qty),
			SellerName: domain.UnknownSeller,
		}
		if row.Title == "" {
			row.Title = domain.UnknownTitle
		}
		if row.Category == "" {
			row.Category = domain.UnknownCategory
		}
		if u, ok := byID[p.SellerID]; ok && p.SellerID.Valid() {
			row.Username = u.Username
			row.Email = u.Email
			row.SellerName = u.DisplayName()
			row.Matched = true
		}
		out = append(out, row)
	}
	return out
}

// JoinStats counts how many enriched rows found their seller.
type JoinStats struct {
	Rows      int
	Matched   int
	Unmatched int
}

// Stats summarizes the join outcome of rows.
func Stats(rows []domain.EnrichedRecord) JoinStats {
	s := JoinStats{Rows: len(rows)}
	for _, r := range rows {
		if r.Matched {
			s.Matched++
		}
	}
	s.Unmatched = s.Rows - s.Matched
	return s
}
