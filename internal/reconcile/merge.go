// Package reconcile merges requested items into a cart's item list.
//
// Merging never fails on business rules: price and quantity mismatches are
// returned as data next to the items that did pass, so the caller always has
// a consistent list to commit.
package reconcile

import (
	"time"

	"github.com/fjod/go_cart/cartmutation/internal/domain"
	"github.com/google/uuid"
)

type Options struct {
	SkipPriceCheck bool
}

// Offers indexes the current catalog variants by item key.
type Offers map[domain.ItemKey]domain.CatalogVariant

func NewOffers(variants []domain.CatalogVariant) Offers {
	offers := make(Offers, len(variants))
	for _, v := range variants {
		offers[v.Key()] = v
	}
	return offers
}

// Change records the state of one line before and after the merge.
// Previous is nil for lines the merge created.
type Change struct {
	Key      domain.ItemKey
	Previous *domain.CartItem
	Current  domain.CartItem
}

type Result struct {
	Items            []domain.CartItem
	Changes          []Change
	PriceFailures    []domain.PriceFailure
	QuantityFailures []domain.QuantityFailure
	// Unknown lists requested keys that have no catalog offer.
	Unknown []domain.ItemKey
}

func (r *Result) Changed() bool {
	return len(r.Changes) > 0
}

// Revert puts the line for key back to its pre-merge state.
func (r *Result) Revert(key domain.ItemKey) {
	for ci, c := range r.Changes {
		if c.Key != key {
			continue
		}
		for i := range r.Items {
			if r.Items[i].Key() != key {
				continue
			}
			if c.Previous == nil {
				r.Items = append(r.Items[:i], r.Items[i+1:]...)
			} else {
				r.Items[i] = *c.Previous
			}
			break
		}
		r.Changes = append(r.Changes[:ci], r.Changes[ci+1:]...)
		return
	}
}

type Reconciler struct {
	newID func() string
	now   func() time.Time
}

func New() *Reconciler {
	return &Reconciler{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Merge adds requested quantities to matching lines and appends new lines at
// the end, preserving the order of existing lines. The existing slice is not modified.
func (r *Reconciler) Merge(existing []domain.CartItem, requested []domain.RequestedItem, offers Offers, opts Options) Result {
	res := Result{Items: append([]domain.CartItem(nil), existing...)}

	positions := make(map[domain.ItemKey]int, len(existing))
	for i, item := range res.Items {
		positions[item.Key()] = i
	}
	changed := make(map[domain.ItemKey]int)
	now := r.now()

	for _, req := range requested {
		key := req.Key()
		offer, ok := offers[key]
		if !ok {
			res.Unknown = append(res.Unknown, key)
			continue
		}

		if !opts.SkipPriceCheck && !req.Price.Equal(offer.Price) {
			res.PriceFailures = append(res.PriceFailures, domain.PriceFailure{
				ItemKey:  key,
				Expected: offer.Price,
				Actual:   req.Price,
			})
			continue
		}

		minQty := offer.MinOrderQuantity
		if minQty < 1 {
			minQty = 1
		}
		if req.Quantity < minQty {
			res.QuantityFailures = append(res.QuantityFailures, domain.QuantityFailure{
				ItemKey:  key,
				Reason:   domain.QuantityBelowMinimum,
				Expected: minQty,
				Actual:   req.Quantity,
			})
			continue
		}

		var previous *domain.CartItem
		if pos, found := positions[key]; found {
			prev := res.Items[pos]
			previous = &prev

			updated := prev
			updated.Quantity += req.Quantity
			updated.Price = offer.Price
			updated.Title = offer.Title
			updated.UpdatedAt = now
			res.Items[pos] = updated
		} else {
			res.Items = append(res.Items, domain.CartItem{
				ID:        r.newID(),
				ProductID: key.ProductID,
				VariantID: key.VariantID,
				Title:     offer.Title,
				Quantity:  req.Quantity,
				Price:     offer.Price,
				AddedAt:   now,
				UpdatedAt: now,
			})
			positions[key] = len(res.Items) - 1
		}

		current := res.Items[positions[key]]
		if ci, seen := changed[key]; seen {
			// same key twice in one request: keep the pre-merge state
			res.Changes[ci].Current = current
			continue
		}
		changed[key] = len(res.Changes)
		res.Changes = append(res.Changes, Change{Key: key, Previous: previous, Current: current})
	}

	return res
}
