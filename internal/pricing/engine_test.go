package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/noah-isme/storefront-gateway/internal/coupon"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestComputeLineDiscounts(t *testing.T) {
	items := []LineItem{
		{ProductID: "p1", Qty: 2, UnitPrice: 500, DiscountedUnitPrice: 400},
	}
	summary, err := Compute(items, 200, 0, nil, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Subtotal != 1000 {
		t.Fatalf("expected subtotal 1000, got %d", summary.Subtotal)
	}
	if summary.Discount != 200 {
		t.Fatalf("expected discount 200, got %d", summary.Discount)
	}
	if summary.Total != 800 {
		t.Fatalf("expected total 800, got %d", summary.Total)
	}
	if summary.GrandTotal != 1000 {
		t.Fatalf("expected grand total 1000, got %d", summary.GrandTotal)
	}
}

func TestComputeCouponStacksWithLineDiscounts(t *testing.T) {
	items := []LineItem{
		{ProductID: "p1", Qty: 1, UnitPrice: 10_000, DiscountedUnitPrice: 9_000},
	}
	c := &coupon.Coupon{Code: "FLAT500", Kind: coupon.KindFixed, Value: 500}
	summary, err := Compute(items, 0, 0, c, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.CouponApplied {
		t.Fatal("expected coupon to apply")
	}
	if summary.Discount != 1_500 {
		t.Fatalf("expected discount 1500, got %d", summary.Discount)
	}
	if summary.Total != 8_500 {
		t.Fatalf("expected total 8500, got %d", summary.Total)
	}
}

func TestComputeDiscountNeverExceedsSubtotal(t *testing.T) {
	items := []LineItem{
		{ProductID: "p1", Qty: 1, UnitPrice: 300, DiscountedUnitPrice: 300},
	}
	c := &coupon.Coupon{Code: "HUGE", Kind: coupon.KindFixed, Value: 10_000}
	summary, err := Compute(items, 150, 50, c, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Discount != 300 {
		t.Fatalf("expected discount clamped to 300, got %d", summary.Discount)
	}
	if summary.Total != 0 {
		t.Fatalf("expected total 0, got %d", summary.Total)
	}
	if summary.GrandTotal != 200 {
		t.Fatalf("expected grand total 200 (fees survive), got %d", summary.GrandTotal)
	}
}

func TestComputeIneligibleCouponYieldsRejection(t *testing.T) {
	items := []LineItem{
		{ProductID: "p1", Qty: 1, UnitPrice: 500, DiscountedUnitPrice: 500},
	}
	c := &coupon.Coupon{Code: "BIGSPEND", Kind: coupon.KindFixed, Value: 100, MinPurchase: 1_000}
	summary, err := Compute(items, 0, 0, c, testNow)
	if err != nil {
		t.Fatalf("ineligible coupon must not error: %v", err)
	}
	if summary.CouponApplied {
		t.Fatal("expected coupon not to apply")
	}
	if summary.CouponRejection == "" {
		t.Fatal("expected a rejection reason")
	}
	if summary.Discount != 0 {
		t.Fatalf("expected zero discount, got %d", summary.Discount)
	}
}

func TestComputeRejectsInvalidItems(t *testing.T) {
	cases := []struct {
		name  string
		items []LineItem
	}{
		{"zero quantity", []LineItem{{ProductID: "p1", Qty: 0, UnitPrice: 100, DiscountedUnitPrice: 100}}},
		{"negative price", []LineItem{{ProductID: "p1", Qty: 1, UnitPrice: -5, DiscountedUnitPrice: 0}}},
		{"discount above list price", []LineItem{{ProductID: "p1", Qty: 1, UnitPrice: 100, DiscountedUnitPrice: 150}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compute(tc.items, 0, 0, nil, testNow); !errors.Is(err, ErrInvalidLineItem) {
				t.Fatalf("expected ErrInvalidLineItem, got %v", err)
			}
		})
	}
}

func TestComputeRejectsNegativeFees(t *testing.T) {
	if _, err := Compute(nil, -1, 0, nil, testNow); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee for delivery fee, got %v", err)
	}
	if _, err := Compute(nil, 0, -1, nil, testNow); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee for tax, got %v", err)
	}
}

func TestFinalPayableClampsToBalance(t *testing.T) {
	p := FinalPayable(1_000, 300, true)
	if p.WalletApplied != 300 {
		t.Fatalf("expected wallet applied 300, got %d", p.WalletApplied)
	}
	if p.Amount != 700 {
		t.Fatalf("expected amount due 700, got %d", p.Amount)
	}
}

func TestFinalPayableClampsToGrandTotal(t *testing.T) {
	p := FinalPayable(400, 900, true)
	if p.WalletApplied != 400 {
		t.Fatalf("expected wallet applied 400, got %d", p.WalletApplied)
	}
	if p.Amount != 0 {
		t.Fatalf("expected amount due 0, got %d", p.Amount)
	}
}

func TestFinalPayableSkipsWalletWhenDisabled(t *testing.T) {
	p := FinalPayable(400, 900, false)
	if p.WalletApplied != 0 {
		t.Fatalf("expected no wallet deduction, got %d", p.WalletApplied)
	}
	if p.Amount != 400 {
		t.Fatalf("expected amount due 400, got %d", p.Amount)
	}
}
