package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskWelcomeEmail greets a freshly registered user.
	TaskWelcomeEmail = "mail:welcome"
	// TaskMatchRebuild recomputes a buyer's cached match set.
	TaskMatchRebuild = "match:rebuild"
	// TaskMatchSweep fans out TaskMatchRebuild for every recently active buyer.
	TaskMatchSweep = "match:sweep"
	// TaskReconcile runs payment reconciliation over a time window.
	TaskReconcile = "txmatch:reconcile"
	// TaskAwardPoints credits gamification points for an event.
	TaskAwardPoints = "gamification:award"
)

// WelcomeEmailPayload describes the information required to greet a user.
type WelcomeEmailPayload struct {
	To   string `json:"to"`
	Name string `json:"name"`
}

// NewWelcomeEmailTask constructs an Asynq task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWelcomeEmail, data), nil
}

// Mailer sends transactional mail. The worker wires an SMTP implementation;
// tests substitute a recorder.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers mail through a plain SMTP relay (Mailpit locally).
type SMTPMailer struct {
	Addr string
	From string
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := []byte("From: " + m.From + "\r\nTo: " + to + "\r\nSubject: " + subject + "\r\n\r\n" + body + "\r\n")
	return smtp.SendMail(m.Addr, nil, m.From, []string{to}, msg)
}

// HandleWelcomeEmailTask returns the handler for TaskWelcomeEmail.
func HandleWelcomeEmailTask(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload WelcomeEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		body := fmt.Sprintf("Hi %s,\n\nWelcome to MSMEBazaar. Complete your profile to start receiving matches.\n", payload.Name)
		if err := mailer.Send(ctx, payload.To, "Welcome to MSMEBazaar", body); err != nil {
			return err
		}
		logger.Info("welcome mail sent", slog.String("to", payload.To))
		return nil
	}
}

// MatchRebuildPayload names the user whose matches should be recomputed.
type MatchRebuildPayload struct {
	UserID string `json:"user_id"`
}

// NewMatchRebuildTask constructs an Asynq task.
func NewMatchRebuildTask(payload MatchRebuildPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMatchRebuild, data), nil
}

// MatchSweepPayload bounds which buyers count as active. A zero Since means
// "the last 30 days", which is what the cron registration uses.
type MatchSweepPayload struct {
	Since time.Time `json:"since,omitempty"`
}

// NewMatchSweepTask constructs an Asynq task.
func NewMatchSweepTask(payload MatchSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMatchSweep, data), nil
}

// ReconcilePayload bounds a reconciliation run. Zero values mean "the last
// 24 hours", which is what the cron registration uses.
type ReconcilePayload struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// NewReconcileTask constructs an Asynq task.
func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, data), nil
}

// AwardPointsPayload credits a gamification event to a user.
type AwardPointsPayload struct {
	UserID string `json:"user_id"`
	Event  string `json:"event"`
}

// NewAwardPointsTask constructs an Asynq task.
func NewAwardPointsTask(payload AwardPointsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAwardPoints, data), nil
}
