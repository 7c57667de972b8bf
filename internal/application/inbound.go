package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// ErrMalformedPayload is returned by Accept when the webhook payload lacks a
// recipient or sender under any supported field convention.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// InboundOutcome is the logical result of accepting a webhook delivery.
// Rejections are not errors: the receiver acknowledges them with 200 so the
// upstream sender does not retry.
type InboundOutcome string

const (
	InboundStored         InboundOutcome = "stored"
	InboundUnknownAddress InboundOutcome = "unknown_address"
	InboundAddressExpired InboundOutcome = "address_expired"
)

// Field name conventions probed in order. Covers SendGrid inbound parse,
// Mailgun (JSON and form-encoded), and the direct test format.
var (
	recipientKeys = []string{"recipient", "to", "To", "address"}
	senderKeys    = []string{"sender", "from", "From"}
	subjectKeys   = []string{"subject", "Subject"}
	textKeys      = []string{"body-plain", "body_plain", "stripped-text", "text", "body"}
	htmlKeys      = []string{"body-html", "body_html", "html"}
)

var angleAddrRe = regexp.MustCompile(`<([^>]+)>`)

// InboundService validates and stores emails delivered through the webhook
// receiver. HTML bodies are sanitized before storage; this is the only place
// the service persists third-party HTML.
type InboundService struct {
	store   driven.InboundStore
	session *SessionService
	clock   Clock
	policy  *bluemonday.Policy
}

// NewInboundService creates an InboundService.
func NewInboundService(store driven.InboundStore, session *SessionService, clock Clock) *InboundService {
	return &InboundService{
		store:   store,
		session: session,
		clock:   clock,
		policy:  bluemonday.UGCPolicy(),
	}
}

// Accept normalizes a flattened webhook payload, validates the recipient
// against the current session, and stores the message. A rejected delivery
// (unknown or expired recipient) returns a non-stored outcome and a nil
// error. ErrMalformedPayload means the payload had no usable recipient or
// sender; any other error is a storage failure.
func (s *InboundService) Accept(ctx context.Context, fields map[string]string) (InboundOutcome, error) {
	recipient := extractEmail(firstField(fields, recipientKeys))
	sender := firstField(fields, senderKeys)
	if recipient == "" {
		return "", fmt.Errorf("%w: missing recipient address", ErrMalformedPayload)
	}
	if sender == "" {
		return "", fmt.Errorf("%w: missing sender", ErrMalformedPayload)
	}

	subject := firstField(fields, subjectKeys)
	if subject == "" {
		subject = "(No Subject)"
	}

	snap := s.session.Snapshot()
	if snap.Address == "" || !strings.EqualFold(recipient, snap.Address) {
		return InboundUnknownAddress, nil
	}
	if snap.ExpiresAt != nil && !s.clock().Before(*snap.ExpiresAt) {
		return InboundAddressExpired, nil
	}

	email := model.InboundEmail{
		ID:         ulid.Make().String(),
		Address:    snap.Address,
		Sender:     sender,
		Subject:    subject,
		Body:       firstField(fields, textKeys),
		HTML:       s.policy.Sanitize(firstField(fields, htmlKeys)),
		ReceivedAt: s.clock(),
	}
	if err := s.store.Save(ctx, email); err != nil {
		return "", fmt.Errorf("store inbound email: %w", err)
	}
	return InboundStored, nil
}

// firstField returns the first non-empty value among the candidate keys.
func firstField(fields map[string]string, keys []string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(fields[key]); v != "" {
			return v
		}
	}
	return ""
}

// extractEmail pulls the bare address out of "Name <user@host>" forms.
func extractEmail(raw string) string {
	if m := angleAddrRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}
