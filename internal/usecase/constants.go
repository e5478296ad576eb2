package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from holding row locks
	DefaultTransactionTimeout = 30 * time.Second

	// DefaultBalanceCacheTTL is how long computed balance histories are cached
	DefaultBalanceCacheTTL = 30 * time.Second

	// DefaultCleanupInterval is how often expired idempotency records are purged
	DefaultCleanupInterval = time.Hour
)
