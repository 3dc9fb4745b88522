// Package ratelimit defines the outbound throughput port. The gateway
// enforces per-account limits; staying under them locally avoids burning
// sends on 429 responses.
package ratelimit

import "context"

// RateLimiter controls gateway call throughput per channel.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
