package worker

import (
	"time"
)

type RetryScheduler struct {
	MaxRetry  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Schedule runs redeliver with the next attempt number after an exponential
// backoff. It returns false once the attempt budget is spent.
func (r *RetryScheduler) Schedule(d Delivery, redeliver func(Delivery)) bool {
	if d.Attempt >= r.MaxRetry {
		return false
	}

	next := Delivery{
		Notification: d.Notification,
		Attempt:      d.Attempt + 1,
	}

	time.AfterFunc(r.Delay(d.Attempt), func() {
		redeliver(next)
	})
	return true
}

func (r *RetryScheduler) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return min(r.BaseDelay*time.Duration(1<<(attempt-1)), r.MaxDelay)
}
