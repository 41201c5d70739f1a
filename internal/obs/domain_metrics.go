package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain-level collectors for the checkout gateway. Registered once on first
// use regardless of how many services reference them.
var (
	domainOnce sync.Once

	QuotesComputed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_quotes_computed_total",
		Help: "Total checkout quotes computed.",
	})

	CouponApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_coupon_applied_total",
		Help: "Total coupons applied successfully at checkout.",
	})

	CouponRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_coupon_rejections_total",
		Help: "Coupon rejections by reason.",
	}, []string{"reason"})

	WalletApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_wallet_applied_total",
		Help: "Total payable computations that deducted wallet balance.",
	})

	RecommendationCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coupon_recommendation_cache_hits_total",
		Help: "Coupon recommendation requests served from cache.",
	})

	RecommendationCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coupon_recommendation_cache_misses_total",
		Help: "Coupon recommendation requests that fetched from the coupon API.",
	})
)

// RegisterDomainMetrics registers the domain collectors with the default
// registry. Safe to call multiple times.
func RegisterDomainMetrics() {
	domainOnce.Do(func() {
		mustRegister(
			QuotesComputed,
			CouponApplied,
			CouponRejections,
			WalletApplied,
			RecommendationCacheHits,
			RecommendationCacheMisses,
		)
	})
}
