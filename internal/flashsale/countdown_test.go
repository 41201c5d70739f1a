package flashsale

import (
	"context"
	"testing"
	"time"
)

func TestRemainingDecomposition(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	end := now.Add(2*time.Hour + 30*time.Minute + 45*time.Second)
	c := Remaining(end, now)
	if c.Expired {
		t.Fatal("countdown should not be expired")
	}
	if c.Hours != 2 || c.Minutes != 30 || c.Seconds != 45 {
		t.Fatalf("unexpected decomposition: %+v", c)
	}
}

func TestRemainingExpired(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	c := Remaining(now.Add(-time.Second), now)
	if !c.Expired {
		t.Fatal("expected expired countdown")
	}
	if c.Hours != 0 || c.Minutes != 0 || c.Seconds != 0 {
		t.Fatalf("expired countdown must be zeroed: %+v", c)
	}
}

func TestRemainingEndingExactlyNow(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	c := Remaining(now, now)
	if c.Expired {
		t.Fatal("a sale ending exactly now is not expired")
	}
	if c.Hours != 0 || c.Minutes != 0 || c.Seconds != 0 {
		t.Fatalf("expected all-zero countdown: %+v", c)
	}
}

func TestRemainingSubSecondFloors(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	c := Remaining(now.Add(900*time.Millisecond), now)
	if c.Seconds != 0 {
		t.Fatalf("expected sub-second remainder to floor to 0, got %d", c.Seconds)
	}
}

func TestTickerEmitsImmediatelyAndStopsWhenExpired(t *testing.T) {
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	current := base
	ticker := Ticker{
		End:      base.Add(2 * time.Second),
		Interval: time.Millisecond,
		Now: func() time.Time {
			now := current
			current = current.Add(time.Second)
			return now
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var seen []Countdown
	ticker.Run(ctx, func(c Countdown) { seen = append(seen, c) })

	if len(seen) < 2 {
		t.Fatalf("expected at least 2 emissions, got %d", len(seen))
	}
	if seen[0].Seconds != 2 {
		t.Fatalf("first emission should carry the full countdown, got %+v", seen[0])
	}
	if !seen[len(seen)-1].Expired {
		t.Fatal("final emission must be expired")
	}
}
