package persistence

import (
	"cmp"
	"strings"
	"time"

	"github.com/dropship/backend/internal/domain/syncjob"
)

// defaultJobSort is the column jobs are listed by when none is requested
const defaultJobSort = "created_at"

// jobComparators holds the sortable sync_jobs columns. Anything not listed
// here falls back to defaultJobSort and never reaches SQL.
var jobComparators = map[string]func(a, b *syncjob.SyncJob) int{
	"created_at":   func(a, b *syncjob.SyncJob) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at":   func(a, b *syncjob.SyncJob) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	"scheduled_at": func(a, b *syncjob.SyncJob) int { return a.ScheduledAt.Compare(b.ScheduledAt) },
	"started_at":   func(a, b *syncjob.SyncJob) int { return compareOptionalTime(a.StartedAt, b.StartedAt) },
	"completed_at": func(a, b *syncjob.SyncJob) int { return compareOptionalTime(a.CompletedAt, b.CompletedAt) },
	"priority":     func(a, b *syncjob.SyncJob) int { return cmp.Compare(a.Priority, b.Priority) },
	"status":       func(a, b *syncjob.SyncJob) int { return strings.Compare(string(a.Status), string(b.Status)) },
	"job_type":     func(a, b *syncjob.SyncJob) int { return strings.Compare(string(a.JobType), string(b.JobType)) },
	"retry_count":  func(a, b *syncjob.SyncJob) int { return cmp.Compare(a.RetryCount, b.RetryCount) },
}

// jobOrder is a validated listing order: one whitelisted column plus the id
// as tiebreak so pages are stable.
type jobOrder struct {
	column string
	desc   bool
}

// newJobOrder resolves the filter's sort request. Direction defaults to DESC;
// only an explicit "asc" sorts ascending.
func newJobOrder(f syncjob.Filter) jobOrder {
	column := strings.ToLower(strings.TrimSpace(f.SortBy))
	if _, ok := jobComparators[column]; !ok {
		column = defaultJobSort
	}
	return jobOrder{
		column: column,
		desc:   !strings.EqualFold(strings.TrimSpace(f.SortDir), "asc"),
	}
}

func (o jobOrder) direction() string {
	if o.desc {
		return "DESC"
	}
	return "ASC"
}

// clauses returns the ORDER BY expressions for GORM
func (o jobOrder) clauses() []string {
	return []string{o.column + " " + o.direction(), "id " + o.direction()}
}

// compare orders jobs in memory the same way clauses orders rows. Unset
// timestamps sort before set ones.
func (o jobOrder) compare(a, b *syncjob.SyncJob) int {
	c := jobComparators[o.column](a, b)
	if c == 0 {
		c = strings.Compare(a.ID.String(), b.ID.String())
	}
	if o.desc {
		return -c
	}
	return c
}

func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}
