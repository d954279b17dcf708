package email

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBuildMessageHeaders(t *testing.T) {
	raw := string(buildMessage("studio@example.com", "client@example.com", "Invoice INV-1", "<p>hi</p>"))

	assert.True(t, strings.HasPrefix(raw, "From: studio@example.com\r\n"))
	assert.Contains(t, raw, "To: client@example.com\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=\"UTF-8\"\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\n<p>hi</p>"))
}

func TestSendRequiresRecipient(t *testing.T) {
	p := NewSMTP(Config{Host: "localhost", Port: 25})
	assert.ErrorIs(t, p.Send(context.Background(), Message{Subject: "x"}), ErrNoRecipient)

	noop := NewNoOp(zap.NewNop())
	assert.ErrorIs(t, noop.Send(context.Background(), Message{}), ErrNoRecipient)
	assert.NoError(t, noop.Send(context.Background(), Message{To: "a@example.com"}))
}
