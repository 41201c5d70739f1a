// Package quote orchestrates checkout pricing: it pulls cart state from the
// cart API, runs the pure pricing engine over it and exposes the results over
// HTTP.
package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/storefront-gateway/internal/backend"
	"github.com/noah-isme/storefront-gateway/internal/coupon"
	"github.com/noah-isme/storefront-gateway/internal/events"
	"github.com/noah-isme/storefront-gateway/internal/obs"
	"github.com/noah-isme/storefront-gateway/internal/pricing"
	"github.com/noah-isme/storefront-gateway/internal/wallet"
)

// CartFetcher loads cart snapshots from the cart API.
type CartFetcher interface {
	Fetch(ctx context.Context, cartID string) (backend.CartSnapshot, error)
}

// CouponApplier mutates the coupon attached to a cart on the coupon API.
type CouponApplier interface {
	Apply(ctx context.Context, cartID, code string) (backend.CartSnapshot, error)
	Remove(ctx context.Context, cartID string) (backend.CartSnapshot, error)
}

// Service wires the pricing engine to the collaborator clients.
type Service struct {
	Carts       CartFetcher
	Coupons     CouponApplier
	Recommender *coupon.Service
	Wallet      *wallet.Service
	Events      *events.Bus
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote prices a client-supplied cart draft without touching the cart API.
// Used by the storefront to preview totals while the cart is being edited.
func (s *Service) Quote(ctx context.Context, items []pricing.LineItem, deliveryFee, tax pricing.Money, applied *coupon.Coupon) (pricing.Summary, error) {
	summary, err := pricing.Compute(items, deliveryFee, tax, applied, s.now())
	if err != nil {
		return pricing.Summary{}, err
	}
	obs.QuotesComputed.Inc()
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicQuoteComputed, map[string]any{
			"subtotal":   summary.Subtotal,
			"discount":   summary.Discount,
			"grandTotal": summary.GrandTotal,
		})
	}
	return summary, nil
}

// CartSummary prices the cart held by the cart API.
func (s *Service) CartSummary(ctx context.Context, cartID string) (pricing.Summary, error) {
	if s.Carts == nil {
		return pricing.Summary{}, errors.New("quote: cart client not configured")
	}
	snap, err := s.Carts.Fetch(ctx, cartID)
	if err != nil {
		return pricing.Summary{}, fmt.Errorf("quote: fetch cart: %w", err)
	}
	summary, err := pricing.Compute(snap.Items, snap.DeliveryFee, snap.Tax, snap.AppliedCoupon, s.now())
	if err != nil {
		return pricing.Summary{}, err
	}
	obs.QuotesComputed.Inc()
	return summary, nil
}

// ApplyCoupon attaches the code to the cart and reprices. A coupon the
// backend accepted but the engine rejects (expired, below minimum spend)
// still yields a summary; the rejection reason travels on it.
func (s *Service) ApplyCoupon(ctx context.Context, cartID, code string) (pricing.Summary, error) {
	if s.Coupons == nil {
		return pricing.Summary{}, errors.New("quote: coupon client not configured")
	}
	snap, err := s.Coupons.Apply(ctx, cartID, code)
	if err != nil {
		return pricing.Summary{}, fmt.Errorf("quote: apply coupon: %w", err)
	}
	summary, err := pricing.Compute(snap.Items, snap.DeliveryFee, snap.Tax, snap.AppliedCoupon, s.now())
	if err != nil {
		return pricing.Summary{}, err
	}
	if s.Recommender != nil {
		s.Recommender.InvalidateSubtotal(ctx, summary.Subtotal)
	}
	if summary.CouponApplied {
		obs.CouponApplied.Inc()
		if s.Events != nil {
			_, _ = s.Events.Emit(ctx, events.TopicCouponApplied, map[string]any{
				"cartId":   cartID,
				"code":     code,
				"discount": summary.Discount,
			})
		}
	} else if summary.CouponRejection != "" {
		obs.CouponRejections.WithLabelValues(rejectionLabel(summary.CouponRejection)).Inc()
		if s.Events != nil {
			_, _ = s.Events.Emit(ctx, events.TopicCouponRejected, map[string]any{
				"cartId": cartID,
				"code":   code,
				"reason": summary.CouponRejection,
			})
		}
	}
	return summary, nil
}

// RemoveCoupon detaches the coupon from the cart and reprices.
func (s *Service) RemoveCoupon(ctx context.Context, cartID string) (pricing.Summary, error) {
	if s.Coupons == nil {
		return pricing.Summary{}, errors.New("quote: coupon client not configured")
	}
	snap, err := s.Coupons.Remove(ctx, cartID)
	if err != nil {
		return pricing.Summary{}, fmt.Errorf("quote: remove coupon: %w", err)
	}
	summary, err := pricing.Compute(snap.Items, snap.DeliveryFee, snap.Tax, snap.AppliedCoupon, s.now())
	if err != nil {
		return pricing.Summary{}, err
	}
	if s.Recommender != nil {
		s.Recommender.InvalidateSubtotal(ctx, summary.Subtotal)
	}
	return summary, nil
}

// Payable prices the cart, then deducts the user's wallet balance when
// requested.
func (s *Service) Payable(ctx context.Context, cartID, userID string, useWallet bool) (pricing.Summary, pricing.Payable, error) {
	summary, err := s.CartSummary(ctx, cartID)
	if err != nil {
		return pricing.Summary{}, pricing.Payable{}, err
	}
	if s.Wallet == nil {
		return summary, pricing.FinalPayable(summary.GrandTotal, 0, false), nil
	}
	payable, err := s.Wallet.Payable(ctx, userID, summary.GrandTotal, useWallet)
	if err != nil {
		return pricing.Summary{}, pricing.Payable{}, err
	}
	return summary, payable, nil
}

// rejectionLabel keeps the metrics label cardinality bounded.
func rejectionLabel(reason string) string {
	switch reason {
	case coupon.ErrExpired.Error():
		return "expired"
	case coupon.ErrMinPurchaseUnmet.Error():
		return "min_purchase_unmet"
	default:
		return "other"
	}
}
