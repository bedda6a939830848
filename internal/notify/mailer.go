package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vendorflow/vendorflow/jobs"
)

// Queue accepts mail:send tasks.
type Queue interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// Mailer renders account emails and hands them to the job queue.
type Mailer struct {
	queue     Queue
	templates *Templates
	now       func() time.Time
}

// NewMailer constructs a Mailer.
func NewMailer(queue Queue, templates *Templates) *Mailer {
	return &Mailer{queue: queue, templates: templates, now: time.Now}
}

// SendOTP queues the password reset code email.
func (m *Mailer) SendOTP(ctx context.Context, to, username, code string, validFor time.Duration) error {
	msg, err := m.templates.OTP(to, username, code, validFor)
	if err != nil {
		return err
	}
	return m.enqueue(ctx, msg)
}

// SendPasswordChanged queues the reset confirmation email.
func (m *Mailer) SendPasswordChanged(ctx context.Context, to, username string) error {
	msg, err := m.templates.PasswordChanged(to, username, m.now())
	if err != nil {
		return err
	}
	return m.enqueue(ctx, msg)
}

func (m *Mailer) enqueue(ctx context.Context, msg Message) error {
	if _, err := m.queue.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	}); err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}
