package cart

import (
	"github.com/noah-isme/storefront-gateway/internal/pricing"
)

// ChangeQuantity returns a new item list with the quantity of productID
// adjusted by delta. Quantities clamp at a minimum of 1, so decrementing an
// item already at 1 is a no-op. An unknown productID leaves the list
// unchanged; that is a recoverable condition, not an error. The input slice
// is never mutated.
func ChangeQuantity(items []pricing.LineItem, productID string, delta int) []pricing.LineItem {
	out := make([]pricing.LineItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ProductID != productID {
			continue
		}
		qty := out[i].Qty + delta
		if qty < 1 {
			qty = 1
		}
		out[i].Qty = qty
		break
	}
	return out
}

// Remove returns a new item list without the line for productID. Removing an
// absent product is a no-op.
func Remove(items []pricing.LineItem, productID string) []pricing.LineItem {
	out := make([]pricing.LineItem, 0, len(items))
	for _, it := range items {
		if it.ProductID == productID {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Add returns a new item list with the line merged in. An existing line for
// the same product has its quantity incremented and keeps its original
// prices. The item is validated at entry.
func Add(items []pricing.LineItem, item pricing.LineItem) ([]pricing.LineItem, error) {
	if item.DiscountedUnitPrice == 0 && item.UnitPrice > 0 {
		// no discount supplied: charge the full unit price
		item.DiscountedUnitPrice = item.UnitPrice
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	out := make([]pricing.LineItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ProductID == item.ProductID {
			out[i].Qty += item.Qty
			return out, nil
		}
	}
	return append(out, item), nil
}
