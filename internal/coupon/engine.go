package coupon

import (
	"errors"
	"sort"
	"time"
)

var (
	// ErrMinPurchaseUnmet indicates the cart subtotal did not reach the coupon requirement.
	ErrMinPurchaseUnmet = errors.New("coupon minimum purchase not met")
	// ErrExpired is returned when the coupon is past its expiry date.
	ErrExpired = errors.New("coupon expired")
)

// Kind discriminates how a coupon discount is calculated.
type Kind string

const (
	// KindFixed deducts a flat currency amount.
	KindFixed Kind = "fixed"
	// KindPercent deducts a percentage of the subtotal, optionally capped.
	KindPercent Kind = "percent"
)

// Coupon captures the evaluation rules of a single coupon. Monetary fields are
// minor units; percentages are basis points.
type Coupon struct {
	Code        string
	Kind        Kind
	Value       int64
	PercentBps  int32
	MaxDiscount int64
	MinPurchase int64
	ExpiresAt   *time.Time
}

// Validate reports whether the coupon can be applied at the provided instant
// and subtotal. Ineligibility is a recoverable condition, not a failure of the
// caller's input.
func (c Coupon) Validate(now time.Time, subtotal int64) error {
	if subtotal < c.MinPurchase {
		return ErrMinPurchaseUnmet
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrExpired
	}
	return nil
}

// Savings calculates the realized savings for the coupon against the given
// subtotal. The result is never negative. It is deliberately not clamped to
// the subtotal; callers converting savings into an applied discount clamp
// independently.
func Savings(c Coupon, subtotal int64) int64 {
	if subtotal < 0 {
		subtotal = 0
	}
	var savings int64
	switch c.Kind {
	case KindPercent:
		if c.PercentBps <= 0 {
			return 0
		}
		savings = (subtotal * int64(c.PercentBps)) / 10000
		if c.MaxDiscount > 0 && savings > c.MaxDiscount {
			savings = c.MaxDiscount
		}
	default:
		savings = c.Value
	}
	if savings < 0 {
		return 0
	}
	return savings
}

// Ranked pairs a coupon with its realized savings for display ordering.
type Ranked struct {
	Coupon  Coupon
	Savings int64
}

// Rank filters the coupons eligible at the given subtotal and instant, orders
// them by descending savings with ties keeping their original relative order,
// and truncates to topN entries when topN > 0. The input slice is never
// mutated.
func Rank(coupons []Coupon, subtotal int64, now time.Time, topN int) []Ranked {
	ranked := make([]Ranked, 0, len(coupons))
	for _, c := range coupons {
		if c.Validate(now, subtotal) != nil {
			continue
		}
		ranked = append(ranked, Ranked{Coupon: c, Savings: Savings(c, subtotal)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Savings > ranked[j].Savings
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// APICoupon mirrors the coupon service wire representation. Percentages travel
// as percentage points and are converted to basis points internally.
type APICoupon struct {
	Code              string     `json:"code"`
	DiscountType      string     `json:"discountType"`
	DiscountValue     int64      `json:"discountValue"`
	MaxDiscountAmount int64      `json:"maxDiscountAmount,omitempty"`
	MinPurchase       int64      `json:"minPurchase"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
}

// FromAPI converts the wire representation into an evaluable Coupon.
func FromAPI(m APICoupon) Coupon {
	c := Coupon{
		Code:        m.Code,
		MinPurchase: m.MinPurchase,
		ExpiresAt:   m.ExpiryDate,
	}
	switch m.DiscountType {
	case "PERCENTAGE":
		c.Kind = KindPercent
		c.PercentBps = int32(m.DiscountValue * 100)
		c.MaxDiscount = m.MaxDiscountAmount
	default:
		c.Kind = KindFixed
		c.Value = m.DiscountValue
	}
	return c
}

// ToAPI converts a Coupon back into its wire representation.
func ToAPI(c Coupon) APICoupon {
	m := APICoupon{
		Code:        c.Code,
		MinPurchase: c.MinPurchase,
		ExpiryDate:  c.ExpiresAt,
	}
	switch c.Kind {
	case KindPercent:
		m.DiscountType = "PERCENTAGE"
		m.DiscountValue = int64(c.PercentBps) / 100
		m.MaxDiscountAmount = c.MaxDiscount
	default:
		m.DiscountType = "FIXED"
		m.DiscountValue = c.Value
	}
	return m
}
