package emaillogs

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resource-mgmt/console/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts one outbound message and fills its id and created_at.
func (r *Repository) Record(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (email_type, recipient_email, subject, body, status, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6::text, ''), $7)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, el.EmailType, el.RecipientEmail, el.Subject, el.Body, el.Status,
		el.ErrorMessage, el.SentAt).Scan(&el.ID, &el.CreatedAt)
}

// List returns the newest messages, optionally for one recipient.
func (r *Repository) List(ctx context.Context, recipient string, limit int) ([]*models.EmailLog, error) {
	const q = `SELECT id, email_type, recipient_email, subject, status, sent_at, error_message, created_at
		FROM email_logs
		WHERE ($1::text = '' OR lower(recipient_email) = lower($1::text))
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var errMsg *string
		if err := rows.Scan(&el.ID, &el.EmailType, &el.RecipientEmail, &el.Subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
