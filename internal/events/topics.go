package events

// Topic constants for domain events emitted by the gateway.
const (
	TopicQuoteComputed  = "quote.computed"
	TopicCouponApplied  = "coupon.applied"
	TopicCouponRejected = "coupon.rejected"
	TopicWalletApplied  = "wallet.applied"
	TopicWalletUpdated  = "wallet.updated"
)

// DefaultTopics returns the canonical list of topics notifiers may observe.
func DefaultTopics() []string {
	return []string{
		TopicQuoteComputed,
		TopicCouponApplied,
		TopicCouponRejected,
		TopicWalletApplied,
		TopicWalletUpdated,
	}
}
