// Package mailer sends transactional email on behalf of a tenant.
//
// Sending is report-don't-throw: Send and SendTemplate never return an
// error. Failures are logged and handed back inside Result so callers can
// decide whether to count them, but they can never fail a business
// operation by accident.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/smallbiznis/agencyflow/internal/providers/email"
	"go.uber.org/zap"
)

const (
	TemplateInvoiceSent    = "invoice_sent"
	TemplateProjectCreated = "project_created"
)

var ErrUnknownTemplate = errors.New("mailer_unknown_template")

//go:embed templates/*.html
var templateFS embed.FS

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type Result struct {
	Sent bool
	Err  error
}

// InvoiceSentData feeds the invoice_sent template.
type InvoiceSentData struct {
	BusinessName  string
	BrandColor    string
	ClientName    string
	InvoiceNumber string
	Total         string
	DueDate       string
}

// ProjectCreatedData feeds the project_created template.
type ProjectCreatedData struct {
	BusinessName string
	BrandColor   string
	ClientName   string
	ProjectTitle string
	Description  string
}

// Sender is the part of the gateway lifecycle services depend on.
type Sender interface {
	Send(ctx context.Context, msg Message) Result
	SendTemplate(ctx context.Context, from, to, name string, data any) Result
}

type Gateway struct {
	provider  email.Provider
	log       *zap.Logger
	templates map[string]*template.Template
}

func NewGateway(provider email.Provider, log *zap.Logger) (*Gateway, error) {
	templates := make(map[string]*template.Template)
	for _, name := range []string{TemplateInvoiceSent, TemplateProjectCreated} {
		tmpl, err := template.ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse email template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &Gateway{
		provider:  provider,
		log:       log.Named("mailer"),
		templates: templates,
	}, nil
}

func (g *Gateway) Send(ctx context.Context, msg Message) Result {
	if strings.TrimSpace(msg.To) == "" {
		return g.fail(msg, email.ErrNoRecipient)
	}
	err := g.provider.Send(ctx, email.Message{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return g.fail(msg, err)
	}
	g.log.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return Result{Sent: true}
}

// SendTemplate renders the named template's subject and body, then sends.
func (g *Gateway) SendTemplate(ctx context.Context, from, to, name string, data any) Result {
	subject, body, err := g.Render(name, data)
	if err != nil {
		return g.fail(Message{From: from, To: to, Subject: name}, err)
	}
	return g.Send(ctx, Message{From: from, To: to, Subject: subject, HTML: body})
}

// Render executes a template without sending it.
func (g *Gateway) Render(name string, data any) (subject string, body string, err error) {
	tmpl, ok := g.templates[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "subject", data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	subject = html.UnescapeString(strings.TrimSpace(buf.String()))

	buf.Reset()
	if err := tmpl.ExecuteTemplate(&buf, "body", data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return subject, buf.String(), nil
}

func (g *Gateway) fail(msg Message, err error) Result {
	g.log.Warn("email not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Error(err),
	)
	return Result{Sent: false, Err: err}
}
