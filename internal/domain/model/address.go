package model

import "time"

// Address is a disposable email address. Immutable once created; a nil
// ExpiresAt denotes a non-expiring address (provider-dependent).
type Address struct {
	LocalPart   string
	Domain      string
	FullAddress string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

// IsExpired reports whether the address has expired at the given instant.
// Non-expiring addresses never expire.
func (a Address) IsExpired(now time.Time) bool {
	if a.ExpiresAt == nil {
		return false
	}
	return !now.Before(*a.ExpiresAt)
}

// SecondsUntilExpiry returns the whole seconds remaining before expiry,
// rounded up and clamped at zero. Returns 0 for non-expiring addresses.
func (a Address) SecondsUntilExpiry(now time.Time) int {
	if a.ExpiresAt == nil {
		return 0
	}
	remaining := a.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}
