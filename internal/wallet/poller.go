package wallet

import (
	"context"
	"time"

	"github.com/noah-isme/storefront-gateway/internal/events"
)

// Poller re-reads a wallet balance after a top-up until it changes or the
// polling window closes. Bounded polling keeps a stuck top-up from pinning a
// goroutine forever.
type Poller struct {
	Source   BalanceFetcher
	Events   *events.Bus
	Interval time.Duration
	Window   time.Duration
}

func (p Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return 5 * time.Second
	}
	return p.Interval
}

func (p Poller) window() time.Duration {
	if p.Window <= 0 {
		return 30 * time.Second
	}
	return p.Window
}

// Run polls until the balance differs from baseline, the window elapses, or
// the context is canceled. It returns the most recently observed balance.
// Transient fetch errors are skipped; the next tick tries again.
func (p Poller) Run(ctx context.Context, userID string, baseline int64) (int64, error) {
	deadline := time.NewTimer(p.window())
	defer deadline.Stop()
	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	current := baseline
	for {
		select {
		case <-ctx.Done():
			return current, ctx.Err()
		case <-deadline.C:
			return current, nil
		case <-ticker.C:
			balance, err := p.Source.Balance(ctx, userID)
			if err != nil {
				continue
			}
			if balance != baseline {
				current = balance
				if p.Events != nil {
					_, _ = p.Events.Emit(ctx, events.TopicWalletUpdated, map[string]any{
						"userId":   userID,
						"previous": baseline,
						"balance":  balance,
					})
				}
				return current, nil
			}
		}
	}
}
