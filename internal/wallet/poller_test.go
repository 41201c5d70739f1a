package wallet_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/events"
	"github.com/noah-isme/storefront-gateway/internal/wallet"
)

type changingBalance struct {
	calls   atomic.Int32
	after   int32
	initial int64
	updated int64
}

func (c *changingBalance) Balance(_ context.Context, _ string) (int64, error) {
	if c.calls.Add(1) > c.after {
		return c.updated, nil
	}
	return c.initial, nil
}

func TestPollerReturnsOnBalanceChange(t *testing.T) {
	notifier := &captureNotifier{}
	source := &changingBalance{after: 2, initial: 100, updated: 600}
	poller := wallet.Poller{
		Source:   source,
		Events:   &events.Bus{Notifiers: []events.Notifier{notifier}},
		Interval: 5 * time.Millisecond,
		Window:   time.Second,
	}

	balance, err := poller.Run(context.Background(), "u1", 100)
	require.NoError(t, err)
	require.EqualValues(t, 600, balance)
	require.Len(t, notifier.events, 1)
	require.Equal(t, events.TopicWalletUpdated, notifier.events[0].Topic)
}

func TestPollerWindowExpiresWithoutChange(t *testing.T) {
	source := &changingBalance{after: 1_000, initial: 100, updated: 100}
	poller := wallet.Poller{
		Source:   source,
		Interval: 5 * time.Millisecond,
		Window:   30 * time.Millisecond,
	}

	balance, err := poller.Run(context.Background(), "u1", 100)
	require.NoError(t, err)
	require.EqualValues(t, 100, balance)
}

func TestPollerStopsOnContextCancel(t *testing.T) {
	source := &changingBalance{after: 1_000, initial: 100, updated: 100}
	poller := wallet.Poller{
		Source:   source,
		Interval: 5 * time.Millisecond,
		Window:   time.Minute,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := poller.Run(ctx, "u1", 100)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
