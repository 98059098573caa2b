package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueReports is the Redis list key for report export jobs.
	QueueReports = "worker:reports"
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// dequeueTimeout bounds BLPOP so Run loops notice cancellation.
	dequeueTimeout = 5 * time.Second
	statusTTL      = 24 * time.Hour
	statusPrefix   = "worker:status:"
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeClientReportExport JobType = "client_report_export"
	JobTypePasswordResetEmail JobType = "password_reset_email"
)

// ClientReportExportPayload is the payload for client report export jobs.
type ClientReportExportPayload struct {
	RequestedBy string `json:"requested_by"`
	OrgID       int    `json:"org_id"`
}

// PasswordResetEmailPayload is the payload for password reset email jobs.
type PasswordResetEmailPayload struct {
	RecipientEmail string    `json:"recipient_email"`
	ResetURL       string    `json:"reset_url"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// State is the lifecycle state of a job as seen by API callers.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Status is stored per job so the API can report progress and results.
type Status struct {
	JobID     string    `json:"job_id"`
	State     State     `json:"state"`
	ObjectKey string    `json:"object_key,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrStatusNotFound is returned when no status is recorded for a job id.
var ErrStatusNotFound = errors.New("job status not found")

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// listFor maps a job type to its list key.
func listFor(t JobType) string {
	switch t {
	case JobTypePasswordResetEmail:
		return QueueEmails
	default:
		return QueueReports
	}
}

func (q *Queue) enqueue(ctx context.Context, t JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, listFor(t), raw).Err(); err != nil {
		return nil, fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(t)))
	return job, nil
}

// EnqueueClientReportExport enqueues an export job and records it as pending. Returns the job id.
func (q *Queue) EnqueueClientReportExport(ctx context.Context, payload ClientReportExportPayload) (string, error) {
	job, err := q.enqueue(ctx, JobTypeClientReportExport, payload)
	if err != nil {
		return "", err
	}
	if err := q.SetStatus(ctx, Status{JobID: job.ID, State: StatePending}); err != nil {
		return "", err
	}
	return job.ID, nil
}

// EnqueuePasswordResetEmail enqueues a password reset email job.
func (q *Queue) EnqueuePasswordResetEmail(ctx context.Context, payload PasswordResetEmailPayload) error {
	_, err := q.enqueue(ctx, JobTypePasswordResetEmail, payload)
	return err
}

// Dequeue waits up to a few seconds for a job on any queue. Returns nil job on timeout.
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, dequeueTimeout, QueueReports, QueueEmails).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead
// and reports true.
func (q *Queue) Retry(ctx context.Context, job *Job) (bool, error) {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return false, err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return true, nil
	}
	if err := q.client.RPush(ctx, listFor(job.Type), raw).Err(); err != nil {
		return false, err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return false, nil
}

// SetStatus records the status of a job.
func (q *Queue) SetStatus(ctx context.Context, st Status) error {
	st.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := q.client.Set(ctx, statusPrefix+st.JobID, raw, statusTTL).Err(); err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	return nil
}

// GetStatus returns the recorded status of a job.
func (q *Queue) GetStatus(ctx context.Context, jobID string) (*Status, error) {
	raw, err := q.client.Get(ctx, statusPrefix+jobID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job status: %w", err)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
