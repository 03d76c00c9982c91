package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropship/backend/internal/domain/syncjob"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "reaper disabled", mutate: func(c *Config) { c.ReapInterval = 0 }},
		{name: "no workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: true},
		{name: "zero poll interval", mutate: func(c *Config) { c.PollInterval = 0 }, wantErr: true},
		{name: "zero job timeout", mutate: func(c *Config) { c.JobTimeout = 0 }, wantErr: true},
		{name: "stale cutoff below timeout", mutate: func(c *Config) { c.StaleAfter = c.JobTimeout }, wantErr: true},
		{name: "negative reap interval", mutate: func(c *Config) { c.ReapInterval = -time.Second }, wantErr: true},
		{name: "zero reap batch", mutate: func(c *Config) { c.ReapBatchSize = 0 }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetries = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExecutorRegistry(t *testing.T) {
	noop := ExecutorFunc(func(context.Context, *syncjob.SyncJob) (syncjob.SummaryCounts, error) {
		return syncjob.SummaryCounts{ProductsAdded: 1}, nil
	})

	r := NewExecutorRegistry()
	require.NoError(t, r.Register(syncjob.JobTypePriceUpdate, noop))
	require.NoError(t, r.Register(syncjob.JobTypeDatasetSync, noop))

	assert.ErrorIs(t, r.Register(syncjob.JobTypeDatasetSync, noop), ErrExecutorDuplicate)
	assert.ErrorIs(t, r.Register("reindex", noop), syncjob.ErrInvalidJobType)

	exec, err := r.Get(syncjob.JobTypeDatasetSync)
	require.NoError(t, err)
	counts, err := exec.Execute(context.Background(), &syncjob.SyncJob{})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.ProductsAdded)

	_, err = r.Get(syncjob.JobTypeImageSync)
	assert.ErrorIs(t, err, ErrNoExecutor)

	assert.Equal(t, []syncjob.JobType{syncjob.JobTypeDatasetSync, syncjob.JobTypePriceUpdate}, r.JobTypes())
}
