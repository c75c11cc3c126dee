// Package mailer is the opaque out-of-band delivery collaborator. The reset
// flow only depends on the Sender interface; whether mail actually goes out
// is a deployment concern.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"account-service/internal/config"
	"account-service/internal/logger"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	return e.Send(addr, auth)
}

// LogSender is the development default: it logs instead of delivering.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	logger.Info("outbound mail",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
