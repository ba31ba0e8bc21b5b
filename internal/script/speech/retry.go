package speech

import "time"

// RetryPolicy holds the two delays the controller waits on.
type RetryPolicy struct {
	// SettleDelay separates cancelling a busy engine from speaking on it again.
	SettleDelay time.Duration
	// RetryDelay is how long a genuine engine failure waits before the next chunk.
	RetryDelay time.Duration
}

// DefaultRetryPolicy matches the timings that keep mobile and desktop engines happy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		SettleDelay: 100 * time.Millisecond,
		RetryDelay:  200 * time.Millisecond,
	}
}
