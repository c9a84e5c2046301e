package tasks

import "time"

// Config tunes the background queue running the availability reconciliation
// and reservation expiry jobs.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// MaxRetries caps retry attempts for a failed job. Default: 3
	MaxRetries int

	// RetryDelay is the backoff between retries. Default: 1m
	RetryDelay time.Duration

	// TaskTimeout bounds a single job run; the full-catalog reconcile is
	// the slowest job and sets this. Default: 5m
	TaskTimeout time.Duration

	// ReleaseAfter is when stuck jobs are released back to the queue.
	// Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often completed jobs are purged. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long completed jobs are kept; failed runs
	// retain their error output for that window. Default: 24h
	RetentionDuration time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        1 * time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
