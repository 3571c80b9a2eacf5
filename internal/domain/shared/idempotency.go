package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed delivery IDs so a redelivered notification can be skipped
type IdempotencyStore interface {
	// MarkProcessed marks a delivery as processed with a TTL
	// Returns true if the delivery was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a delivery has already been processed
	IsProcessed(ctx context.Context, deliveryID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for delivery de-duplication
type IdempotencyConfig struct {
	// TTL is how long a delivery ID is remembered
	// Default: 24 hours
	TTL time.Duration

	// Enabled turns de-duplication on. Replays are safe without it.
	// Default: false
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: false,
	}
}
