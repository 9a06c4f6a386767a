package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Task types carried over the redis-backed mail queue.
const (
	TaskVerificationEmail  = "email:verification"
	TaskPasswordResetEmail = "email:password_reset"
)

const mailMaxRetry = 3

type mailPayload struct {
	To   string `json:"to"`
	Name string `json:"name"`
	Link string `json:"link"`
}

// MailQueue implements auth.Mailer by enqueueing delivery tasks instead of
// dialing SMTP inline. Used when redis is configured; the worker below picks
// the tasks up and delivers through the SMTPMailer.
type MailQueue struct {
	client *asynq.Client
}

func NewMailQueue(redisAddr string) *MailQueue {
	return &MailQueue{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
	}
}

func (q *MailQueue) SendVerificationEmail(ctx context.Context, to, name, link string) error {
	return q.enqueue(ctx, TaskVerificationEmail, to, name, link)
}

func (q *MailQueue) SendPasswordResetEmail(ctx context.Context, to, name, link string) error {
	return q.enqueue(ctx, TaskPasswordResetEmail, to, name, link)
}

func (q *MailQueue) Close() error {
	return q.client.Close()
}

func (q *MailQueue) enqueue(ctx context.Context, taskType, to, name, link string) error {
	payload, err := json.Marshal(mailPayload{To: to, Name: name, Link: link})
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(taskType, payload), asynq.MaxRetry(mailMaxRetry))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}

	return nil
}

// MailWorker drains the mail queue. Run alongside the API process or as its
// own deployment; either way delivery failures stay out of request paths.
type MailWorker struct {
	srv    *asynq.Server
	mailer *SMTPMailer
}

func NewMailWorker(redisAddr string, mailer *SMTPMailer) *MailWorker {
	return &MailWorker{
		srv: asynq.NewServer(
			asynq.RedisClientOpt{Addr: redisAddr},
			asynq.Config{Concurrency: 5},
		),
		mailer: mailer,
	}
}

// Start begins processing in the background. Non-blocking.
func (w *MailWorker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskVerificationEmail, w.handleVerification)
	mux.HandleFunc(TaskPasswordResetEmail, w.handlePasswordReset)

	if err := w.srv.Start(mux); err != nil {
		return fmt.Errorf("start mail worker: %w", err)
	}

	zap.L().Info("Mail worker started")
	return nil
}

func (w *MailWorker) Shutdown() {
	w.srv.Shutdown()
}

func (w *MailWorker) handleVerification(ctx context.Context, t *asynq.Task) error {
	var p mailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", t.Type(), err)
	}

	return w.mailer.SendVerificationEmail(ctx, p.To, p.Name, p.Link)
}

func (w *MailWorker) handlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var p mailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", t.Type(), err)
	}

	return w.mailer.SendPasswordResetEmail(ctx, p.To, p.Name, p.Link)
}
