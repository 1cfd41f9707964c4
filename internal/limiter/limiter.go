// Package limiter throttles sign-in attempts per (account, client address).
package limiter

import (
	"context"
	"crypto/sha256"
	"strings"
	"time"
)

// Limiter controls sign-in attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a sign-in is currently allowed and, if not, for how long.
	Allow(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful sign-in.
	Success(ctx context.Context, subject string, ipHash []byte) error
	// Failure records a failed attempt; it reports whether the pair is now blocked.
	Failure(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error)
}

// Policy is the shared window/threshold/lockout configuration.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// Subject normalises an account identifier (email) for counting.
func Subject(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
