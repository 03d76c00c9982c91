package scheduler

import (
	"fmt"
	"time"

	"github.com/dropship/backend/internal/domain/syncjob"
)

// Config holds sync job scheduler configuration
type Config struct {
	// Workers is the number of jobs executed concurrently by the runner
	Workers int
	// PollInterval is how long an idle worker waits before claiming again
	PollInterval time.Duration
	// JobTimeout is the maximum time a single run may take
	JobTimeout time.Duration
	// StaleAfter is the age of a RUNNING job after which the reaper treats it as abandoned
	StaleAfter time.Duration
	// ReapInterval is how often the reaper scans; 0 disables the reaper
	ReapInterval time.Duration
	// ReapBatchSize bounds the jobs reclassified per scan
	ReapBatchSize int
	// MaxRetries is the retry budget of jobs scheduled without one
	MaxRetries int
	// RetryPolicy computes the reschedule delay of retryable failures
	RetryPolicy syncjob.RetryPolicy
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Workers:       2,
		PollInterval:  5 * time.Second,
		JobTimeout:    30 * time.Minute,
		StaleAfter:    time.Hour,
		ReapInterval:  5 * time.Minute,
		ReapBatchSize: 100,
		MaxRetries:    syncjob.DefaultMaxRetries,
		RetryPolicy:   syncjob.DefaultRetryPolicy(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	if c.StaleAfter <= c.JobTimeout {
		return fmt.Errorf("%w: stale cutoff must exceed the job timeout", ErrInvalidConfig)
	}
	if c.ReapInterval < 0 {
		return fmt.Errorf("%w: reap interval must not be negative", ErrInvalidConfig)
	}
	if c.ReapBatchSize <= 0 {
		return fmt.Errorf("%w: reap batch size must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	}
	return nil
}
