package email

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var ErrNoRecipient = errors.New("email_no_recipient")

type Message struct {
	// From overrides the configured sender when set.
	From    string
	To      string
	Subject string
	HTML    string
}

// Provider is the outbound mail transport.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpProvider drops every message. It is used when SMTP is not configured.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	p.log.Debug("email transport disabled, message dropped", zap.String("subject", msg.Subject))
	return nil
}
