package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/storefront-gateway/internal/coupon"
)

// Money represents a monetary value stored in minor units.
type Money = int64

var (
	// ErrInvalidLineItem is returned when a line item violates its invariants.
	ErrInvalidLineItem = errors.New("invalid line item")
	// ErrInvalidFee is returned when a delivery fee or tax amount is negative.
	ErrInvalidFee = errors.New("invalid fee")
)

// LineItem describes a cart line used for pricing calculation.
// DiscountedUnitPrice is the price actually charged and must not exceed
// UnitPrice.
type LineItem struct {
	ProductID           string
	Qty                 int
	UnitPrice           Money
	DiscountedUnitPrice Money
}

// Validate checks the line item invariants.
func (it LineItem) Validate() error {
	if it.Qty < 1 {
		return fmt.Errorf("product %s: quantity must be at least 1: %w", it.ProductID, ErrInvalidLineItem)
	}
	if it.UnitPrice < 0 || it.DiscountedUnitPrice < 0 {
		return fmt.Errorf("product %s: negative price: %w", it.ProductID, ErrInvalidLineItem)
	}
	if it.DiscountedUnitPrice > it.UnitPrice {
		return fmt.Errorf("product %s: discounted price exceeds unit price: %w", it.ProductID, ErrInvalidLineItem)
	}
	return nil
}

// Summary aggregates computed pricing components. CouponRejection carries the
// reason an applied coupon produced zero savings, letting callers surface
// "coupon not applicable" without treating it as an error.
type Summary struct {
	Subtotal        Money
	Discount        Money
	DeliveryFee     Money
	Tax             Money
	Total           Money
	GrandTotal      Money
	CouponApplied   bool
	CouponRejection string
}

// Compute derives cart totals from line items, externally supplied fees and an
// optionally applied coupon. Coupon expiry is evaluated against the provided
// instant so the function stays deterministic. Pure: inputs are never mutated.
func Compute(items []LineItem, deliveryFee, tax Money, applied *coupon.Coupon, now time.Time) (Summary, error) {
	if deliveryFee < 0 {
		return Summary{}, fmt.Errorf("delivery fee must not be negative: %w", ErrInvalidFee)
	}
	if tax < 0 {
		return Summary{}, fmt.Errorf("tax must not be negative: %w", ErrInvalidFee)
	}

	var subtotal, lineDiscount Money
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return Summary{}, err
		}
		subtotal += Money(it.Qty) * it.UnitPrice
		lineDiscount += Money(it.Qty) * (it.UnitPrice - it.DiscountedUnitPrice)
	}

	var couponDiscount Money
	couponApplied := false
	rejection := ""
	if applied != nil {
		if err := applied.Validate(now, subtotal); err != nil {
			rejection = err.Error()
		} else {
			couponDiscount = coupon.Savings(*applied, subtotal)
			couponApplied = true
		}
	}

	discount := lineDiscount + couponDiscount
	if discount > subtotal {
		discount = subtotal
	}
	total := subtotal - discount

	return Summary{
		Subtotal:        subtotal,
		Discount:        discount,
		DeliveryFee:     deliveryFee,
		Tax:             tax,
		Total:           total,
		GrandTotal:      total + deliveryFee + tax,
		CouponApplied:   couponApplied,
		CouponRejection: rejection,
	}, nil
}

// Payable is the wallet-adjusted amount to charge.
type Payable struct {
	WalletApplied Money
	Amount        Money
}

// FinalPayable deducts wallet credit from the grand total. The deduction never
// exceeds min(balance, grandTotal) and the payable amount is never negative.
func FinalPayable(grandTotal, walletBalance Money, useWallet bool) Payable {
	if grandTotal < 0 {
		grandTotal = 0
	}
	if walletBalance < 0 {
		walletBalance = 0
	}
	var applied Money
	if useWallet {
		applied = walletBalance
		if applied > grandTotal {
			applied = grandTotal
		}
	}
	return Payable{WalletApplied: applied, Amount: grandTotal - applied}
}
