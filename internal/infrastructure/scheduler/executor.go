package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/dropship/backend/internal/domain/syncjob"
)

// Executor performs the work of one job type. Errors marked with
// syncjob.Permanent fail the job without retrying.
type Executor interface {
	Execute(ctx context.Context, job *syncjob.SyncJob) (syncjob.SummaryCounts, error)
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, job *syncjob.SyncJob) (syncjob.SummaryCounts, error)

// Execute implements Executor
func (f ExecutorFunc) Execute(ctx context.Context, job *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
	return f(ctx, job)
}

// ExecutorRegistry maps job types to executors
type ExecutorRegistry struct {
	mu        sync.RWMutex
	executors map[syncjob.JobType]Executor
}

// NewExecutorRegistry creates an empty registry
func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{executors: make(map[syncjob.JobType]Executor)}
}

// Register adds the executor of a job type
func (r *ExecutorRegistry) Register(jobType syncjob.JobType, e Executor) error {
	if !jobType.IsValid() {
		return fmt.Errorf("%w: %q", syncjob.ErrInvalidJobType, jobType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[jobType]; exists {
		return fmt.Errorf("%w: %s", ErrExecutorDuplicate, jobType)
	}
	r.executors[jobType] = e
	return nil
}

// Get returns the executor of a job type
func (r *ExecutorRegistry) Get(jobType syncjob.JobType) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoExecutor, jobType)
	}
	return e, nil
}

// JobTypes returns the registered job types in syncjob.AllJobTypes order
func (r *ExecutorRegistry) JobTypes() []syncjob.JobType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]syncjob.JobType, 0, len(r.executors))
	for _, t := range syncjob.AllJobTypes() {
		if _, ok := r.executors[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
