// Package normalize maps raw product and user payloads into the flat domain
// shapes. Mapping is tolerant: missing or malformed fields fall back to
// defaults and produce builtin.Warning values instead of errors. The one
// hard failure is an input element that is not a JSON object at all.
package normalize

import (
	"errors"
	"fmt"

	"omnicart/internal/domain"
	"omnicart/internal/transformer"
	"omnicart/internal/transformer/builtin"
	"omnicart/pkg/records"
)

// ErrNotRecord reports an input element that is not a JSON object.
var ErrNotRecord = errors.New("element is not a JSON object")

// rownumKey carries each record's input position through the transformer
// chain so warnings point at the caller's index even after filtering.
const rownumKey = "__rownum"

// Seller foreign-key spellings seen across API variants, in lookup order.
var sellerKeys = []string{"userId", "sellerId", "user_id", "seller_id"}

// Products normalizes raw product elements. The output has exactly one
// Product per input element, in input order.
func Products(raw []any) ([]domain.Product, []builtin.Warning, error) {
	recs, err := toRecords(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("normalize products: %w", err)
	}
	recs = transformer.Chain{builtin.Normalize{}}.Apply(recs)

	out := make([]domain.Product, 0, len(recs))
	var warns []builtin.Warning
	for _, r := range recs {
		c := &builtin.Coercer{Index: rownum(r)}
		out = append(out, product(c, r))
		warns = append(warns, c.Warnings...)
	}
	return out, warns, nil
}

func product(c *builtin.Coercer, r records.Record) domain.Product {
	id, ok := r["id"]
	p := domain.Product{ID: domain.ID(c.ID("id", id, ok))}

	title, ok := r["title"]
	p.Title = c.String("title", title, ok, domain.UnknownTitle)
	cat, ok := r["category"]
	p.Category = c.String("category", cat, ok, domain.UnknownCategory)
	price, ok := r["price"]
	p.Price = c.NonNegativeFloat("price", price, ok)
	seller, ok := r.Lookup(sellerKeys...)
	p.SellerID = domain.ID(c.ID("userId", seller, ok))

	rating, hasRating := r["rating"]
	if obj, isObj := records.FromAny(rating); isObj {
		rate, ok := obj["rate"]
		p.Rating = c.OptionalFloat("rating.rate", rate, ok)
		count, ok := obj["count"]
		p.RatingCount = c.NonNegativeInt("rating.count", count, ok)
		return p
	}

	// Pre-flattened payloads carry the rate as a scalar rating and the count
	// as quantity. Anything else leaves rating null and the count at 0.
	if hasRating && rating != nil {
		if _, isNum := builtin.ParseFloat(rating); isNum {
			p.Rating = c.OptionalFloat("rating", rating, true)
		} else {
			c.Warnings = append(c.Warnings, builtin.Warning{
				Index: c.Index, Field: "rating", Value: rating, Reason: "not an object, using null",
			})
		}
	}
	qty, ok := r["quantity"]
	p.RatingCount = c.NonNegativeInt("quantity", qty, ok)
	return p
}

// Users normalizes raw user elements. Users without an id are dropped
// (they can never match a product) and only the first user of each id is
// kept, so a join against the result never duplicates product rows. Both
// cases are reported as warnings.
func Users(raw []any) ([]domain.User, []builtin.Warning, error) {
	recs, err := toRecords(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("normalize users: %w", err)
	}

	var warns []builtin.Warning
	canonicalID := transformer.Func(func(in []records.Record) []records.Record {
		for _, r := range in {
			c := &builtin.Coercer{Index: rownum(r)}
			v, ok := r["id"]
			if id := c.ID("id", v, ok); id != "" {
				r["id"] = id
			} else {
				delete(r, "id")
			}
			warns = append(warns, c.Warnings...)
		}
		return in
	})

	all := make([]int, len(recs))
	for i, r := range recs {
		all[i] = rownum(r)
	}
	withID := transformer.Chain{builtin.Normalize{}, canonicalID, builtin.Require{Fields: []string{"id"}}}.Apply(recs)
	warns = append(warns, dropped(all, withID, "id", "missing id, user cannot be joined")...)

	kept := builtin.DeDup{Keys: []string{"id"}, Policy: "keep-first"}.Apply(withID)
	warns = append(warns, dropped(rownums(withID), kept, "id", "duplicate id, first occurrence kept")...)

	out := make([]domain.User, 0, len(kept))
	for _, r := range kept {
		c := &builtin.Coercer{Index: rownum(r)}
		out = append(out, user(c, r))
		warns = append(warns, c.Warnings...)
	}
	return out, warns, nil
}

func user(c *builtin.Coercer, r records.Record) domain.User {
	id, _ := r["id"].(string)
	u := domain.User{ID: domain.ID(id)}

	name, ok := r["username"]
	u.Username = c.String("username", name, ok, "")
	email, ok := r["email"]
	u.Email = c.String("email", email, ok, "")

	if obj, isObj := r.Object("name"); isObj {
		u.HasName = true
		first, ok := obj["firstname"]
		u.FirstName = c.String("name.firstname", first, ok, "")
		last, ok := obj["lastname"]
		u.LastName = c.String("name.lastname", last, ok, "")
	}
	return u
}

// toRecords clones every element so normalization never mutates the
// caller's decoded payload, and stamps its input position.
func toRecords(raw []any) ([]records.Record, error) {
	out := make([]records.Record, len(raw))
	for i, v := range raw {
		r, ok := records.FromAny(v)
		if !ok {
			return nil, fmt.Errorf("%w: index %d has type %T", ErrNotRecord, i, v)
		}
		r = r.Clone()
		r[rownumKey] = i
		out[i] = r
	}
	return out, nil
}

func rownum(r records.Record) int {
	n, _ := r[rownumKey].(int)
	return n
}

func rownums(in []records.Record) []int {
	out := make([]int, len(in))
	for i, r := range in {
		out[i] = rownum(r)
	}
	return out
}

// dropped reports a warning for every position in before that is missing
// from after.
func dropped(before []int, after []records.Record, field, reason string) []builtin.Warning {
	if len(before) == len(after) {
		return nil
	}
	kept := make(map[int]struct{}, len(after))
	for _, r := range after {
		kept[rownum(r)] = struct{}{}
	}
	var out []builtin.Warning
	for _, n := range before {
		if _, ok := kept[n]; !ok {
			out = append(out, builtin.Warning{Index: n, Field: field, Reason: reason})
		}
	}
	return out
}
