package generation

import "time"

// Policy is a fixed exponential backoff without jitter. The delay before
// retry k (1-based) is Unit * 2^k.
type Policy struct {
	MaxRetries int
	Unit       time.Duration
}

// DefaultPolicy allows 3 retries after the first attempt, waiting 2s, 4s and 8s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, Unit: time.Second}
}

// Attempts is the total number of calls the policy allows.
func (p Policy) Attempts() int {
	return p.MaxRetries + 1
}

// Delay returns the wait before retry k, or false when k is outside the budget.
func (p Policy) Delay(k int) (time.Duration, bool) {
	if k < 1 || k > p.MaxRetries {
		return 0, false
	}
	return p.Unit * time.Duration(1<<k), true
}
