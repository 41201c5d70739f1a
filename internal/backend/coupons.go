package backend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/noah-isme/storefront-gateway/internal/coupon"
)

// CouponClient talks to the coupon API. It satisfies coupon.Lister so the
// recommendation service can fetch eligible coupons through it.
type CouponClient struct {
	Client
}

// Eligible lists coupons a cart with the given subtotal may use.
func (c CouponClient) Eligible(ctx context.Context, subtotal int64) ([]coupon.Coupon, error) {
	var envelope struct {
		Data struct {
			Coupons []coupon.APICoupon `json:"coupons"`
		} `json:"data"`
	}
	query := url.Values{"subtotal": []string{strconv.FormatInt(subtotal, 10)}}
	if err := c.getJSON(ctx, "/coupons/eligible", query, &envelope); err != nil {
		return nil, err
	}
	out := make([]coupon.Coupon, 0, len(envelope.Data.Coupons))
	for _, api := range envelope.Data.Coupons {
		out = append(out, coupon.FromAPI(api))
	}
	return out, nil
}

// Apply attaches a coupon code to the cart and returns the refreshed snapshot.
func (c CouponClient) Apply(ctx context.Context, cartID, code string) (CartSnapshot, error) {
	var envelope struct {
		Data cartDTO `json:"data"`
	}
	path := fmt.Sprintf("/carts/%s/coupon", url.PathEscape(cartID))
	body := map[string]string{"code": code}
	if err := c.postJSON(ctx, path, body, &envelope); err != nil {
		return CartSnapshot{}, err
	}
	return snapshotFromDTO(envelope.Data), nil
}

// Remove detaches the coupon from the cart and returns the refreshed snapshot.
func (c CouponClient) Remove(ctx context.Context, cartID string) (CartSnapshot, error) {
	var envelope struct {
		Data cartDTO `json:"data"`
	}
	path := fmt.Sprintf("/carts/%s/coupon", url.PathEscape(cartID))
	if err := c.deleteJSON(ctx, path, &envelope); err != nil {
		return CartSnapshot{}, err
	}
	return snapshotFromDTO(envelope.Data), nil
}
