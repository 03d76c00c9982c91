// Package syncjob contains the Sync Job bounded context.
// A sync job is a durable unit of asynchronous ingestion work (for example
// "resync this dataset") with its own lifecycle state machine.
//
// Key concepts:
//   - SyncJob: Aggregate tracking status, retry budget and schedule of one unit of work
//   - SyncHistory: Append-only audit record written when a job reaches a terminal state
//   - RetryPolicy: Value object computing the reschedule delay for retryable failures
//   - Repository / HistoryRepository: Persistence ports; claiming is compare-and-swap
//
// State machine:
//
//	PENDING -> RUNNING                claim (exclusive)
//	RUNNING -> COMPLETED              success
//	RUNNING -> PENDING                retryable failure, retry budget left
//	RUNNING -> FAILED                 permanent failure or budget exhausted
//	RUNNING -> PENDING | TIMEOUT      stale job reaped
//	PENDING | RUNNING -> CANCELLED    explicit cancellation
package syncjob
