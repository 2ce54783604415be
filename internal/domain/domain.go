// Package domain holds the typed values produced by each pipeline stage:
// normalized products and users, enriched rows, and the aggregated report.
// Everything here is a plain value; nothing is shared between runs.
package domain

import (
	"strings"
)

const (
	// UnknownSeller keys rows whose seller could not be resolved.
	UnknownSeller = "Unknown Seller"
	// UnknownCategory replaces a missing or empty product category.
	UnknownCategory = "Unknown"
	// UnknownTitle replaces a missing or empty product title.
	UnknownTitle = "Unknown"
	// UnknownName is the display name of a user without a usable name object.
	UnknownName = "Unknown"
)

// ID is a canonical record identity. The empty ID is null.
type ID string

// Valid reports whether id is non-null.
func (id ID) Valid() bool { return id != "" }

// Product is a normalized product record.
type Product struct {
	ID          ID
	Title       string
	Category    string
	Price       float64
	SellerID    ID
	Rating      *float64
	RatingCount int64
}

// User is a normalized user record.
type User struct {
	ID        ID
	Username  string
	Email     string
	FirstName string
	LastName  string
	// HasName is false when the payload carried no name object.
	HasName bool
}

// DisplayName joins first and last name. Users without a name object, or
// with an empty one, are shown as UnknownName.
func (u User) DisplayName() string {
	if !u.HasName {
		return UnknownName
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{u.FirstName, u.LastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return UnknownName
	}
	return strings.Join(parts, " ")
}

// EnrichedRecord is a product left-joined with its seller plus the derived
// quantity and revenue columns.
type EnrichedRecord struct {
	ProductID ID
	Title     string
	Category  string
	Price     float64
	Rating    *float64
	SellerID  ID

	Quantity int64
	Revenue  float64

	// Seller fields are empty when Matched is false.
	Username   string
	Email      string
	SellerName string
	Matched    bool
}

// SellerKey is the grouping key used by the analyzer.
func (r EnrichedRecord) SellerKey() string {
	if r.Username == "" {
		return UnknownSeller
	}
	return r.Username
}
