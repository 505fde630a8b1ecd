package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlab/quant/pkg/logger"
)

type countingJob struct {
	runs     atomic.Int32
	failures int32
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.runs.Add(1)
	if n <= j.failures {
		return errors.New("boom")
	}
	return nil
}

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := New(logger.Nop())
	err := s.AddJob("not a cron spec", &countingJob{})
	require.Error(t, err)
}

func TestRunWithRetryStopsAfterSuccess(t *testing.T) {
	s := New(logger.Nop())
	s.retryDelay = time.Millisecond

	job := &countingJob{failures: 1}
	s.runWithRetry(job)

	assert.Equal(t, int32(2), job.runs.Load(), "one failure then one success")
}

func TestRunWithRetryGivesUp(t *testing.T) {
	s := New(logger.Nop())
	s.retryDelay = time.Millisecond

	job := &countingJob{failures: 100}
	s.runWithRetry(job)

	assert.Equal(t, int32(s.maxRetries), job.runs.Load())
}
