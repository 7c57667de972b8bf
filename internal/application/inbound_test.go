package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempbox/internal/application"
)

// acceptFixture wires an InboundService against an active session whose
// address is user1@example.test.
func acceptFixture(t *testing.T, ttl time.Duration) (*application.InboundService, *sessionFixture) {
	t.Helper()

	f := newSessionFixture(t, ttl, 30*time.Second)
	require.NoError(t, f.svc.Init(context.Background()))

	svc := application.NewInboundService(f.inbound, f.svc, f.clock.Now)
	return svc, f
}

func TestAccept_StoresMatchingDelivery(t *testing.T) {
	svc, f := acceptFixture(t, time.Hour)

	outcome, err := svc.Accept(context.Background(), map[string]string{
		"recipient":  "user1@example.test",
		"sender":     "alice@example.org",
		"subject":    "hello",
		"body-plain": "plain text",
		"body-html":  `<p>hi</p><script>alert(1)</script>`,
	})

	require.NoError(t, err)
	assert.Equal(t, application.InboundStored, outcome)

	f.inbound.mu.Lock()
	defer f.inbound.mu.Unlock()
	require.Len(t, f.inbound.saved, 1)
	email := f.inbound.saved[0]
	assert.NotEmpty(t, email.ID)
	assert.Equal(t, "user1@example.test", email.Address)
	assert.Equal(t, "alice@example.org", email.Sender)
	assert.Equal(t, "hello", email.Subject)
	assert.Equal(t, "plain text", email.Body)
	assert.Contains(t, email.HTML, "<p>hi</p>")
	assert.NotContains(t, email.HTML, "<script>", "HTML is sanitized before storage")
}

func TestAccept_RecipientMatchingIsCaseInsensitiveAndUnwrapsAngleForm(t *testing.T) {
	svc, f := acceptFixture(t, time.Hour)

	outcome, err := svc.Accept(context.Background(), map[string]string{
		"to":   `Disposable User <USER1@Example.Test>`,
		"from": "bob@example.org",
	})

	require.NoError(t, err)
	assert.Equal(t, application.InboundStored, outcome)

	f.inbound.mu.Lock()
	defer f.inbound.mu.Unlock()
	require.Len(t, f.inbound.saved, 1)
	assert.Equal(t, "(No Subject)", f.inbound.saved[0].Subject)
}

func TestAccept_UnknownAddressIsRejectedWithoutError(t *testing.T) {
	svc, f := acceptFixture(t, time.Hour)

	outcome, err := svc.Accept(context.Background(), map[string]string{
		"recipient": "somebody-else@example.test",
		"sender":    "alice@example.org",
	})

	require.NoError(t, err, "logical rejections are not errors")
	assert.Equal(t, application.InboundUnknownAddress, outcome)

	f.inbound.mu.Lock()
	defer f.inbound.mu.Unlock()
	assert.Empty(t, f.inbound.saved)
}

func TestAccept_ExpiredAddressIsRejected(t *testing.T) {
	svc, f := acceptFixture(t, time.Hour)

	f.clock.Advance(2 * time.Hour)

	outcome, err := svc.Accept(context.Background(), map[string]string{
		"recipient": "user1@example.test",
		"sender":    "alice@example.org",
	})

	require.NoError(t, err)
	assert.Equal(t, application.InboundAddressExpired, outcome)
}

func TestAccept_MissingRecipientIsMalformed(t *testing.T) {
	svc, _ := acceptFixture(t, time.Hour)

	_, err := svc.Accept(context.Background(), map[string]string{
		"sender": "alice@example.org",
	})

	require.ErrorIs(t, err, application.ErrMalformedPayload)
}

func TestAccept_MissingSenderIsMalformed(t *testing.T) {
	svc, _ := acceptFixture(t, time.Hour)

	_, err := svc.Accept(context.Background(), map[string]string{
		"recipient": "user1@example.test",
	})

	require.ErrorIs(t, err, application.ErrMalformedPayload)
}

// Field names vary between forwarding services; the first match wins.
func TestAccept_FieldConventions(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		body   string
	}{
		{
			name: "mailgun",
			fields: map[string]string{
				"recipient":  "user1@example.test",
				"sender":     "a@b.c",
				"body-plain": "mailgun text",
			},
			body: "mailgun text",
		},
		{
			name: "sendgrid",
			fields: map[string]string{
				"to":   "user1@example.test",
				"from": "a@b.c",
				"text": "sendgrid text",
			},
			body: "sendgrid text",
		},
		{
			name: "direct",
			fields: map[string]string{
				"address": "user1@example.test",
				"from":    "a@b.c",
				"body":    "direct text",
			},
			body: "direct text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, f := acceptFixture(t, time.Hour)

			outcome, err := svc.Accept(context.Background(), tt.fields)

			require.NoError(t, err)
			assert.Equal(t, application.InboundStored, outcome)

			f.inbound.mu.Lock()
			defer f.inbound.mu.Unlock()
			require.Len(t, f.inbound.saved, 1)
			assert.Equal(t, tt.body, f.inbound.saved[0].Body)
		})
	}
}
