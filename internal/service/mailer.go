// Package service holds the supporting services around the auth core:
// transactional mail delivery, the asynchronous mail queue and the expired
// token sweeper.
package service

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// MailConfig is the SMTP endpoint configuration, injected from config
// instead of read from the environment at call sites.
type MailConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// SMTPMailer delivers verification and password-reset mails over SMTP.
// Implements auth.Mailer.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(cfg MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password),
		from:   cfg.From,
	}
}

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, to, name, link string) error {
	body := fmt.Sprintf(
		"Hi %s,<br><br>Click <a href='%s'>here</a> to verify your account.<br><br>This link will expire in 24 hours.",
		name, link)

	return m.send(ctx, to, "Verify your email address", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, to, name, link string) error {
	body := fmt.Sprintf(
		"Hi %s,<br><br>Click <a href='%s'>here</a> to reset your password.<br><br>This link will expire in 1 hour. If you didn't request this, you can ignore this mail.",
		name, link)

	return m.send(ctx, to, "Reset your password", body)
}

// send delivers the message but gives up when ctx expires; gomail has no
// context support of its own so the dial-and-send runs on the side.
func (m *SMTPMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	errc := make(chan error, 1)
	go func() {
		errc <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
