package models

import "time"

// Email delivery states recorded in the outbox.
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailTypePasswordReset marks password reset messages.
const EmailTypePasswordReset = "password_reset"

// EmailLog is one outbound message recorded by the worker.
type EmailLog struct {
	ID             int64      `json:"id"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Body           string     `json:"body,omitempty"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
