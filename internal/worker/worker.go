// Package worker runs the background jobs: client report exports and password reset emails.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/resource-mgmt/console/internal/metrics"
	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/internal/reports"
	"github.com/resource-mgmt/console/pkg/queue"
)

// Job results recorded in metrics.
const (
	resultOK      = "ok"
	resultRetried = "retried"
	resultDead    = "dead"
)

// Jobs is the queue surface the worker drives.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
	SetStatus(ctx context.Context, st queue.Status) error
}

// ReportSource loads the rows of the client report.
type ReportSource interface {
	ClientSummaries(ctx context.Context) ([]reports.ClientSummary, error)
}

// Uploader stores rendered workbooks.
type Uploader interface {
	UploadReport(ctx context.Context, jobID string, body io.Reader) (string, error)
}

// Outbox records outbound messages.
type Outbox interface {
	Record(ctx context.Context, el *models.EmailLog) error
}

// Processor dequeues jobs and executes them.
type Processor struct {
	jobs     Jobs
	reports  ReportSource
	uploader Uploader
	outbox   Outbox
	logger   *zap.Logger
	backoff  time.Duration
	now      func() time.Time
}

// NewProcessor creates a job processor.
func NewProcessor(jobs Jobs, source ReportSource, uploader Uploader, outbox Outbox, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		jobs:     jobs,
		reports:  source,
		uploader: uploader,
		outbox:   outbox,
		logger:   logger,
		backoff:  queue.RetryBackoff,
		now:      time.Now,
	}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeClientReportExport:
		var payload queue.ClientReportExportPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.exportClientReport(ctx, job.ID, payload)
	case queue.JobTypePasswordResetEmail:
		var payload queue.PasswordResetEmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.sendPasswordReset(ctx, payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) exportClientReport(ctx context.Context, jobID string, payload queue.ClientReportExportPayload) error {
	rows, err := p.reports.ClientSummaries(ctx)
	if err != nil {
		return fmt.Errorf("load client report: %w", err)
	}
	buf, err := reports.RenderWorkbook(rows, p.now())
	if err != nil {
		return err
	}
	key, err := p.uploader.UploadReport(ctx, jobID, buf)
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.jobs.SetStatus(ctx, queue.Status{JobID: jobID, State: queue.StateCompleted, ObjectKey: key}); err != nil {
		return err
	}
	p.logger.Info("client report exported",
		zap.String("job_id", jobID),
		zap.String("requested_by", payload.RequestedBy),
		zap.Int("rows", len(rows)),
		zap.String("s3_key", key))
	return nil
}

// PasswordResetMessage renders the subject and body of a reset email.
func PasswordResetMessage(payload queue.PasswordResetEmailPayload) (string, string) {
	subject := "Reset your password"
	body := fmt.Sprintf("Use the link below to choose a new password. It expires at %s.\n\n%s\n",
		payload.ExpiresAt.UTC().Format(time.RFC1123), payload.ResetURL)
	return subject, body
}

func (p *Processor) sendPasswordReset(ctx context.Context, payload queue.PasswordResetEmailPayload) error {
	if payload.RecipientEmail == "" {
		return errors.New("password reset email without recipient")
	}
	subject, body := PasswordResetMessage(payload)
	sentAt := p.now().UTC()
	el := &models.EmailLog{
		EmailType:      models.EmailTypePasswordReset,
		RecipientEmail: payload.RecipientEmail,
		Subject:        subject,
		Body:           body,
		Status:         models.EmailStatusSent,
		SentAt:         &sentAt,
	}
	if err := p.outbox.Record(ctx, el); err != nil {
		return fmt.Errorf("record email: %w", err)
	}
	p.logger.Info("password reset email recorded", zap.String("recipient", payload.RecipientEmail), zap.Int64("email_log_id", el.ID))
	return nil
}

// handle processes one job and schedules a retry on failure. Exports that exhaust their retries are
// marked failed so the download endpoint can report it.
func (p *Processor) handle(ctx context.Context, job *queue.Job) string {
	err := p.Process(ctx, job)
	if err == nil {
		return resultOK
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Int("attempt", job.Attempt), zap.Error(err))
	dead, reErr := p.jobs.Retry(ctx, job)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
	}
	if !dead {
		return resultRetried
	}
	if job.Type == queue.JobTypeClientReportExport {
		if stErr := p.jobs.SetStatus(ctx, queue.Status{JobID: job.ID, State: queue.StateFailed, Error: err.Error()}); stErr != nil {
			p.logger.Error("mark export failed", zap.String("job_id", job.ID), zap.Error(stErr))
		}
	}
	return resultDead
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		result := p.handle(ctx, job)
		metrics.JobsProcessed.WithLabelValues(string(job.Type), result).Inc()
		if result == resultRetried {
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
