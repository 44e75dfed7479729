// ABOUTME: Durable email delivery through the job_queue table.
// ABOUTME: Enqueue renders nothing; the worker handler renders and sends on claim.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pantharshit007/pms/internal/store"
)

// EmailQueue is the job_queue queue name for outbound mail.
const EmailQueue = "email"

const emailMaxAttempts = 5

// Email kinds carried in the job payload.
const (
	KindOTP   = "otp"
	KindReset = "reset"
)

// EmailJob is the payload enqueued for one outbound email.
type EmailJob struct {
	Kind       string `json:"kind"`
	To         string `json:"to"`
	Username   string `json:"username"`
	Code       string `json:"code,omitempty"`
	ResetURL   string `json:"reset_url,omitempty"`
	TTLMinutes int    `json:"ttl_minutes"`
}

// Mailer enqueues auth emails and executes them as a worker queue handler.
type Mailer struct {
	store *store.Store
	smtp  SmtpConfig
}

// NewMailer creates a Mailer backed by s.
func NewMailer(s *store.Store, smtp SmtpConfig) *Mailer {
	return &Mailer{store: s, smtp: smtp}
}

// Enqueue stores job for asynchronous delivery. The HTTP handler returns as
// soon as the row is committed; delivery and retries happen in the worker.
func (m *Mailer) Enqueue(ctx context.Context, job EmailJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}
	if _, err := m.store.EnqueueJob(ctx, EmailQueue, 0, payload, emailMaxAttempts, nil); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// Handle is the worker.Handler for EmailQueue. A non-nil return triggers
// the queue's retry with backoff.
func (m *Mailer) Handle(ctx context.Context, payload json.RawMessage) error {
	var job EmailJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode email job: %w", err)
	}

	var subject, html, text string
	var err error
	switch job.Kind {
	case KindOTP:
		subject, html, text, err = RenderOTP(OTPTemplateData{
			Username:   job.Username,
			Code:       job.Code,
			TTLMinutes: job.TTLMinutes,
		})
	case KindReset:
		subject, html, text, err = RenderReset(ResetTemplateData{
			Username:   job.Username,
			ResetURL:   job.ResetURL,
			TTLMinutes: job.TTLMinutes,
		})
	default:
		return fmt.Errorf("unknown email kind %q", job.Kind)
	}
	if err != nil {
		return err
	}

	return EmailSend(ctx, m.smtp, []string{job.To}, subject, html, text)
}
