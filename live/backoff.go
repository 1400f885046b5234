package live

import "time"

// Backoff describes the reconnect policy for display clients: bounded
// exponential delays, then give up. After a successful reconnect the
// client re-joins its rooms and does a full state re-pull; the channel
// keeps no history to catch up from.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial:     time.Second,
		Max:         30 * time.Second,
		Multiplier:  2.0,
		MaxAttempts: 8,
	}
}

// Delay returns the wait before the given reconnect attempt (starting at
// 0) and whether another attempt is allowed at all.
func (b Backoff) Delay(attempt int) (time.Duration, bool) {
	if attempt >= b.MaxAttempts {
		return 0, false
	}
	delay := b.Initial
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * b.Multiplier)
		if delay >= b.Max {
			return b.Max, true
		}
	}
	return delay, true
}
