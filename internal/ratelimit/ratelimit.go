// Package ratelimit throttles proof submissions per submitter.
package ratelimit

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCooldown is how long a submitter must wait after an accepted
// attempt before the next one is accepted.
const DefaultCooldown = 5 * time.Second

// Limiter is a per-user cooldown gate. A user's entry lives for one
// cooldown after their last allowed check; while it is live every further
// check is refused and the entry is left untouched. The window therefore
// slides from the last allowed attempt, not the last attempt.
type Limiter struct {
	cooldown time.Duration
	entries  *gocache.Cache
}

// New returns a limiter with the given cooldown. Zero or negative falls
// back to DefaultCooldown.
func New(cooldown time.Duration) *Limiter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	// Expiry is checked on every read; the janitor only reclaims memory,
	// so it never needs to run more often than once per minute.
	cleanup := 10 * cooldown
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &Limiter{
		cooldown: cooldown,
		entries:  gocache.New(cooldown, cleanup),
	}
}

// Cooldown returns the configured cooldown.
func (l *Limiter) Cooldown() time.Duration {
	return l.cooldown
}

// Check records an attempt by userID and reports whether it is allowed.
// Add only succeeds when no live entry exists and is atomic within the
// cache, so concurrent checks for the same user cannot both pass.
func (l *Limiter) Check(userID string) bool {
	return l.entries.Add(userID, time.Now(), l.cooldown) == nil
}

// LastAllowed returns the time of the user's most recent allowed check, if
// it is still inside the cooldown window.
func (l *Limiter) LastAllowed(userID string) (time.Time, bool) {
	v, ok := l.entries.Get(userID)
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}
