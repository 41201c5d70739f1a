package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/noah-isme/storefront-gateway/internal/coupon"
	"github.com/noah-isme/storefront-gateway/internal/pricing"
)

// CartSnapshot is the gateway view of a cart held by the cart API.
type CartSnapshot struct {
	Items         []pricing.LineItem
	DeliveryFee   pricing.Money
	Tax           pricing.Money
	AppliedCoupon *coupon.Coupon
}

type cartItemDTO struct {
	ProductID           string `json:"productId"`
	Quantity            int    `json:"quantity"`
	UnitPrice           int64  `json:"unitPrice"`
	DiscountedUnitPrice int64  `json:"discountedUnitPrice"`
}

type cartDTO struct {
	Items         []cartItemDTO     `json:"items"`
	DeliveryFee   int64             `json:"deliveryFee"`
	Tax           int64             `json:"tax"`
	AppliedCoupon *coupon.APICoupon `json:"appliedCoupon,omitempty"`
}

// CartClient reads carts from the cart API.
type CartClient struct {
	Client
}

// Fetch loads the cart snapshot for the given cart ID.
func (c CartClient) Fetch(ctx context.Context, cartID string) (CartSnapshot, error) {
	var envelope struct {
		Data cartDTO `json:"data"`
	}
	path := fmt.Sprintf("/carts/%s", url.PathEscape(cartID))
	if err := c.getJSON(ctx, path, nil, &envelope); err != nil {
		return CartSnapshot{}, err
	}
	return snapshotFromDTO(envelope.Data), nil
}

func snapshotFromDTO(dto cartDTO) CartSnapshot {
	snap := CartSnapshot{
		DeliveryFee: dto.DeliveryFee,
		Tax:         dto.Tax,
		Items:       make([]pricing.LineItem, 0, len(dto.Items)),
	}
	for _, it := range dto.Items {
		item := pricing.LineItem{
			ProductID:           it.ProductID,
			Qty:                 it.Quantity,
			UnitPrice:           it.UnitPrice,
			DiscountedUnitPrice: it.DiscountedUnitPrice,
		}
		// items without a promo price pay the list price
		if item.DiscountedUnitPrice == 0 && item.UnitPrice > 0 {
			item.DiscountedUnitPrice = item.UnitPrice
		}
		snap.Items = append(snap.Items, item)
	}
	if dto.AppliedCoupon != nil {
		applied := coupon.FromAPI(*dto.AppliedCoupon)
		snap.AppliedCoupon = &applied
	}
	return snap
}
