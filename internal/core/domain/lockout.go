package domain

import "time"

// LockoutPolicy maps a consecutive-failure count to a lock duration. Below
// the threshold no lock applies; at and beyond it, the escalation table is
// indexed by how far past the threshold the counter is, clamping to the last
// entry so the lock is bounded.
type LockoutPolicy struct {
	Threshold int
	Durations []time.Duration
}

// DefaultLockoutPolicy locks after 5 consecutive failures with an escalation
// of 1, 5, 15, 30, and finally 60 minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Threshold: 5,
		Durations: []time.Duration{
			1 * time.Minute,
			5 * time.Minute,
			15 * time.Minute,
			30 * time.Minute,
			60 * time.Minute,
		},
	}
}

// ShouldLock reports whether the supplied post-increment failure count
// triggers a lock.
func (p LockoutPolicy) ShouldLock(failedAttempts int) bool {
	return failedAttempts >= p.Threshold
}

// LockDuration returns the lock duration for the supplied post-increment
// failure count. Counts below the threshold yield zero.
func (p LockoutPolicy) LockDuration(failedAttempts int) time.Duration {
	if failedAttempts < p.Threshold || len(p.Durations) == 0 {
		return 0
	}
	idx := failedAttempts - p.Threshold
	if idx >= len(p.Durations) {
		idx = len(p.Durations) - 1
	}
	return p.Durations[idx]
}

// RemainingAttempts returns how many wrong-password attempts are left before
// the account locks.
func (p LockoutPolicy) RemainingAttempts(failedAttempts int) int {
	remaining := p.Threshold - failedAttempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
