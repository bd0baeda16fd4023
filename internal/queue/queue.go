package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JobType defines the type of job
type JobType string

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job persisted in the jobs table
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) (interface{}, error)

// Queue is a database-backed job queue with a single polling worker
type Queue struct {
	db       *gorm.DB
	handlers map[JobType]JobHandler
	stop     chan struct{}
	running  bool
}

// NewQueue creates a new queue
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{
		db:       db,
		handlers: make(map[JobType]JobHandler),
		stop:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(jobType JobType, payload interface{}) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	job := Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		MaxRetries: 3,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := q.db.Create(&job).Error; err != nil {
		return "", err
	}

	return job.ID.String(), nil
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(jobID string) (*Job, error) {
	var job Job
	if err := q.db.First(&job, "id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Start begins polling for pending jobs. It blocks until Stop is called,
// so callers run it in a goroutine.
func (q *Queue) Start() {
	if q.running {
		return
	}
	q.running = true

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-q.stop:
			q.running = false
			return
		case <-ticker.C:
			q.drainPending()
		}
	}
}

// Stop halts the worker loop
func (q *Queue) Stop() {
	close(q.stop)
}

func (q *Queue) drainPending() {
	for {
		var job Job
		err := q.db.Where("status = ?", JobStatusPending).Order("created_at").First(&job).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				zap.L().Error("error polling job queue", zap.Error(err))
			}
			return
		}
		q.ProcessJob(job)
	}
}

// ProcessJob runs the registered handler for a job and records the outcome.
// Failed jobs are retried up to MaxRetries before being marked failed.
func (q *Queue) ProcessJob(job Job) {
	handler, ok := q.handlers[job.Type]
	if !ok {
		zap.L().Warn("no handler registered for job type", zap.String("type", string(job.Type)))
		q.update(job.ID, map[string]interface{}{
			"status": JobStatusFailed,
			"error":  "no handler registered",
		})
		return
	}

	q.update(job.ID, map[string]interface{}{"status": JobStatusProcessing})

	result, err := handler(context.Background(), job)
	if err != nil {
		updates := map[string]interface{}{
			"error":       err.Error(),
			"retry_count": job.RetryCount + 1,
		}
		if job.RetryCount+1 >= job.MaxRetries {
			updates["status"] = JobStatusFailed
			zap.L().Error("job failed permanently",
				zap.String("job_id", job.ID.String()),
				zap.String("type", string(job.Type)),
				zap.Error(err))
		} else {
			updates["status"] = JobStatusPending
			zap.L().Warn("job failed, will retry",
				zap.String("job_id", job.ID.String()),
				zap.String("type", string(job.Type)),
				zap.Int("attempt", job.RetryCount+1),
				zap.Error(err))
		}
		q.update(job.ID, updates)
		return
	}

	updates := map[string]interface{}{"status": JobStatusCompleted}
	if result != nil {
		if resultJSON, err := json.Marshal(result); err == nil {
			updates["result"] = resultJSON
		} else {
			zap.L().Error("failed to marshal job result", zap.Error(err))
		}
	}
	q.update(job.ID, updates)
}

func (q *Queue) update(jobID uuid.UUID, updates map[string]interface{}) {
	updates["updated_at"] = time.Now()
	if err := q.db.Model(&Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to update job", zap.String("job_id", jobID.String()), zap.Error(err))
	}
}
