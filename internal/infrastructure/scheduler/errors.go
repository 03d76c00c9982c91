package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when the runner is asked to work while stopped
	ErrSchedulerNotRunning = errors.New("scheduler: runner is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")

	// ErrInvalidRequest is returned when a schedule request fails validation
	ErrInvalidRequest = errors.New("scheduler: invalid schedule request")

	// ErrNoExecutor is returned for a job type without a registered executor
	ErrNoExecutor = errors.New("scheduler: no executor registered for job type")

	// ErrExecutorDuplicate is returned when a job type is registered twice
	ErrExecutorDuplicate = errors.New("scheduler: executor already registered for job type")

	// ErrJobTimeout is the failure cause of a job that exceeded its run timeout
	ErrJobTimeout = errors.New("scheduler: job exceeded run timeout")

	// ErrHistoryWrite is returned when a job reached a terminal state but its history could not be stored
	ErrHistoryWrite = errors.New("scheduler: failed to record sync history")
)
