package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/storefront-gateway/internal/cache"
	"github.com/noah-isme/storefront-gateway/internal/obs"
)

// Lister fetches the coupons the backend considers eligible for a subtotal.
// Server-side eligibility is authoritative; the service only re-ranks the
// list for display.
type Lister interface {
	Eligible(ctx context.Context, subtotal int64) ([]Coupon, error)
}

// Service produces savings-ordered coupon recommendations, caching the
// backend eligibility response between subtotal changes.
type Service struct {
	Source      Lister
	Cache       *cache.Cache
	DefaultTopN int
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) topN(requested int) int {
	if requested > 0 {
		return requested
	}
	if s.DefaultTopN > 0 {
		return s.DefaultTopN
	}
	return 3
}

func eligibleKey(subtotal int64) string {
	return fmt.Sprintf("coupons:eligible:%d", subtotal)
}

// Recommend returns the top-N eligible coupons ordered by realized savings.
// Passing topN <= 0 selects the configured default; passing a large topN is
// the expand-to-all affordance and never alters the ranking order.
func (s *Service) Recommend(ctx context.Context, subtotal int64, topN int) ([]Ranked, error) {
	if s == nil || s.Source == nil {
		return nil, errors.New("coupon service not configured")
	}
	key := eligibleKey(subtotal)
	var coupons []Coupon
	hit, err := s.Cache.GetJSON(ctx, key, &coupons)
	if err != nil || !hit {
		obs.RecommendationCacheMisses.Inc()
		coupons, err = s.Source.Eligible(ctx, subtotal)
		if err != nil {
			return nil, fmt.Errorf("fetch eligible coupons: %w", err)
		}
		_ = s.Cache.SetJSON(ctx, key, coupons)
	} else {
		obs.RecommendationCacheHits.Inc()
	}
	return Rank(coupons, subtotal, s.now(), s.topN(topN)), nil
}

// InvalidateSubtotal drops the cached eligibility response for a subtotal,
// forcing the next recommendation to hit the backend.
func (s *Service) InvalidateSubtotal(ctx context.Context, subtotal int64) {
	if s == nil {
		return
	}
	_ = s.Cache.Invalidate(ctx, eligibleKey(subtotal))
}
