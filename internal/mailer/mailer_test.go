package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/agencyflow/internal/providers/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func newGateway(t *testing.T, provider email.Provider) *Gateway {
	t.Helper()
	g, err := NewGateway(provider, zap.NewNop())
	require.NoError(t, err)
	return g
}

func TestSendReportsProviderFailure(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Send", mock.Anything, mock.Anything).Return(errors.New("421 try later"))

	res := newGateway(t, provider).Send(context.Background(), Message{To: "client@example.com", Subject: "hi", HTML: "<p>hi</p>"})

	assert.False(t, res.Sent)
	assert.EqualError(t, res.Err, "421 try later")
	provider.AssertExpectations(t)
}

func TestSendSkipsProviderWithoutRecipient(t *testing.T) {
	provider := &mockProvider{}

	res := newGateway(t, provider).Send(context.Background(), Message{Subject: "hi"})

	assert.False(t, res.Sent)
	assert.ErrorIs(t, res.Err, email.ErrNoRecipient)
	provider.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendTemplateInvoiceSent(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
		return msg.To == "client@example.com" &&
			msg.From == "studio@example.com" &&
			msg.Subject == "Invoice INV-7 from Pixel & Co"
	})).Return(nil)

	g := newGateway(t, provider)
	res := g.SendTemplate(context.Background(), "studio@example.com", "client@example.com", TemplateInvoiceSent, InvoiceSentData{
		BusinessName:  "Pixel & Co",
		BrandColor:    "#4f46e5",
		ClientName:    "Acme",
		InvoiceNumber: "INV-7",
		Total:         "USD 1,500.00",
	})

	assert.True(t, res.Sent)
	assert.NoError(t, res.Err)
	provider.AssertExpectations(t)
}

func TestRenderProjectCreated(t *testing.T) {
	g := newGateway(t, &mockProvider{})

	subject, body, err := g.Render(TemplateProjectCreated, ProjectCreatedData{
		BusinessName: "Pixel",
		BrandColor:   "#112233",
		ClientName:   "Acme",
		ProjectTitle: "Rebrand",
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to your new project: Rebrand", subject)
	assert.Contains(t, body, "Rebrand")
	assert.Contains(t, body, "#112233")
	assert.Contains(t, body, "Hi Acme")
}

func TestSendTemplateUnknown(t *testing.T) {
	provider := &mockProvider{}
	res := newGateway(t, provider).SendTemplate(context.Background(), "", "client@example.com", "missing", nil)

	assert.False(t, res.Sent)
	assert.ErrorIs(t, res.Err, ErrUnknownTemplate)
	provider.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
