package syncjob

import "errors"

// Sync job domain errors
var (
	ErrInvalidJobType     = errors.New("syncjob: invalid job type")
	ErrInvalidEntityType  = errors.New("syncjob: entity type is required")
	ErrInvalidEntityID    = errors.New("syncjob: entity ID is required")
	ErrInvalidMaxRetries  = errors.New("syncjob: max retries must not be negative")
	ErrInvalidTransition  = errors.New("syncjob: invalid status transition")
	ErrJobNotFound        = errors.New("syncjob: job not found")
	ErrConcurrentUpdate   = errors.New("syncjob: job was modified concurrently")
	ErrHistoryInvalidJob  = errors.New("syncjob: history requires a terminal job")
	ErrRetryBudgetInvalid = errors.New("syncjob: retry count exceeds max retries")
)

// permanentError marks an error that must not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that the scheduler fails the job without retrying.
// Permanent(nil) returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or any error it wraps, was marked Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
