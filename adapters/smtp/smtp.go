// Package smtp delivers notification emails over SMTP with gomail.
package smtp

import (
	"context"
	"errors"
	"net/http"

	"github.com/lborres/technopark/core"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const serviceName = "mail"

// Config holds the SMTP relay settings.
type Config struct {
	From     string
	Host     string
	Port     int
	Username string
	Password string
}

func (c Config) validate() error {
	switch {
	case c.From == "":
		return errors.New("smtp: config missing from address")
	case c.Host == "":
		return errors.New("smtp: config missing host")
	case c.Port == 0:
		return errors.New("smtp: config missing port")
	}
	return nil
}

// SendFunc delivers a composed message.
type SendFunc func(msg *gomail.Message) error

// Mailer implements core.Mailer.
type Mailer struct {
	from   string
	send   SendFunc
	logger *zap.Logger
}

var _ core.Mailer = (*Mailer)(nil)

// New returns a mailer that dials the SMTP relay for every message.
func New(cfg Config, logger *zap.Logger) (*Mailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	send := func(msg *gomail.Message) error {
		return d.DialAndSend(msg)
	}
	return NewWithSender(cfg.From, send, logger), nil
}

// NewWithSender returns a mailer that hands messages to send.
func NewWithSender(from string, send SendFunc, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{from: from, send: send, logger: logger.Named("mail")}
}

// Send composes a plain text message and delivers it. gomail has no context
// support, so a cancelled context is only honored before dialing.
func (m *Mailer) Send(ctx context.Context, msg *core.MailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)

	m.logger.Info("sending mail", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	if err := m.send(gm); err != nil {
		return &core.ExternalError{
			Service: serviceName,
			Status:  http.StatusBadGateway,
			Message: "no se pudo enviar el correo",
			Err:     err,
		}
	}
	return nil
}
