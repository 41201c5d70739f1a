package flashsale

import (
	"context"
	"time"
)

// Countdown is a decomposed remaining duration for display.
type Countdown struct {
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}

// Remaining decomposes the distance between now and the sale end into whole
// hours, minutes and seconds. A sale ending exactly now is not expired; only
// a strictly negative distance is.
func Remaining(end, now time.Time) Countdown {
	distance := end.Sub(now)
	if distance < 0 {
		return Countdown{Expired: true}
	}
	ms := distance.Milliseconds()
	return Countdown{
		Hours:   int(ms / (60 * 60 * 1000)),
		Minutes: int(ms % (60 * 60 * 1000) / (60 * 1000)),
		Seconds: int(ms % (60 * 1000) / 1000),
	}
}

// Ticker drives a repeating countdown refresh on a single goroutine.
type Ticker struct {
	End      time.Time
	Interval time.Duration
	Now      func() time.Time
}

func (t Ticker) interval() time.Duration {
	if t.Interval <= 0 {
		return time.Second
	}
	return t.Interval
}

func (t Ticker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Run invokes fn immediately and then once per interval until the countdown
// expires or ctx is cancelled. The final invocation carries Expired = true.
func (t Ticker) Run(ctx context.Context, fn func(Countdown)) {
	emit := func() bool {
		c := Remaining(t.End, t.now())
		fn(c)
		return c.Expired
	}
	if emit() {
		return
	}
	ticker := time.NewTicker(t.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if emit() {
				return
			}
		}
	}
}
