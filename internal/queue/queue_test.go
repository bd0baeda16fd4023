package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestQueue(t *testing.T) *Queue {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Migrator().DropTable(&Job{}))
	require.NoError(t, db.AutoMigrate(&Job{}))

	return NewQueue(db)
}

func TestEnqueueAndGetJob(t *testing.T) {
	q := setupTestQueue(t)

	jobID, err := q.Enqueue(JobType("test_job"), map[string]string{"key": "value"})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job, err := q.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, JobType("test_job"), job.Type)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "value", payload["key"])
}

func TestProcessJobSuccess(t *testing.T) {
	q := setupTestQueue(t)

	q.RegisterHandler(JobType("test_job"), func(ctx context.Context, job Job) (interface{}, error) {
		return map[string]int{"handled": 1}, nil
	})

	jobID, err := q.Enqueue(JobType("test_job"), nil)
	require.NoError(t, err)

	job, err := q.GetJob(jobID)
	require.NoError(t, err)
	q.ProcessJob(*job)

	done, err := q.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, done.Status)

	var result map[string]int
	require.NoError(t, json.Unmarshal(done.Result, &result))
	assert.Equal(t, 1, result["handled"])
}

func TestProcessJobWithoutHandler(t *testing.T) {
	q := setupTestQueue(t)

	jobID, err := q.Enqueue(JobType("unknown_job"), nil)
	require.NoError(t, err)

	job, err := q.GetJob(jobID)
	require.NoError(t, err)
	q.ProcessJob(*job)

	failed, err := q.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, failed.Status)
	assert.Equal(t, "no handler registered", failed.Error)
}

func TestProcessJobRetriesUntilFailed(t *testing.T) {
	q := setupTestQueue(t)

	attempts := 0
	q.RegisterHandler(JobType("flaky_job"), func(ctx context.Context, job Job) (interface{}, error) {
		attempts++
		return nil, errors.New("boom")
	})

	jobID, err := q.Enqueue(JobType("flaky_job"), nil)
	require.NoError(t, err)

	// First two failures leave the job pending for another attempt
	for i := 0; i < 2; i++ {
		job, err := q.GetJob(jobID)
		require.NoError(t, err)
		q.ProcessJob(*job)

		pending, err := q.GetJob(jobID)
		require.NoError(t, err)
		assert.Equal(t, JobStatusPending, pending.Status)
		assert.Equal(t, i+1, pending.RetryCount)
	}

	// The third failure exhausts MaxRetries
	job, err := q.GetJob(jobID)
	require.NoError(t, err)
	q.ProcessJob(*job)

	failed, err := q.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, failed.Status)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "boom", failed.Error)
}
