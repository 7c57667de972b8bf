// Package localmail implements the MailProvider port without any network
// calls: addresses are synthesized locally and the inbox is backed by the
// webhook-fed inbound store.
package localmail

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// previewLength bounds the summary preview derived from the stored body.
const previewLength = 120

// Compile-time interface satisfaction check.
var _ driven.MailProvider = (*Provider)(nil)

// DomainPicker yields the domain used for synthesized addresses. Satisfied
// by the application's domain directory.
type DomainPicker interface {
	FeaturedDomain(ctx context.Context) string
}

// Provider implements driven.MailProvider for offline/demo operation.
type Provider struct {
	domains DomainPicker
	store   driven.InboundStore
}

// New creates a local provider over the given domain picker and inbound
// store.
func New(domains DomainPicker, store driven.InboundStore) *Provider {
	return &Provider{
		domains: domains,
		store:   store,
	}
}

// Local reports true: inbox operations never leave the process and local
// read state is authoritative.
func (p *Provider) Local() bool { return true }

// CreateAccount synthesizes an address against today's featured domain.
// No remote account exists, so the credential carries no auth token.
func (p *Provider) CreateAccount(ctx context.Context) (model.Credential, error) {
	domain := p.domains.FeaturedDomain(ctx)
	if domain == "" {
		return model.Credential{}, driven.ErrAddressExhausted
	}

	now := time.Now()
	return model.Credential{
		AccountID: uuid.NewString(),
		Address:   model.NewRandomAddress(domain, now),
		CreatedAt: now,
	}, nil
}

// ListMessages reads the webhook-fed inbox for the credential's address,
// newest first.
func (p *Provider) ListMessages(ctx context.Context, cred model.Credential) ([]model.MessageSummary, error) {
	if cred.Address.FullAddress == "" {
		return nil, driven.ErrNotAuthenticated
	}

	emails, err := p.store.ListByAddress(ctx, cred.Address.FullAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrFetchMessages, err)
	}

	summaries := make([]model.MessageSummary, 0, len(emails))
	for _, email := range emails {
		summaries = append(summaries, model.MessageSummary{
			ID:         email.ID,
			From:       email.Sender,
			Subject:    email.Subject,
			Preview:    preview(email.Body),
			ReceivedAt: email.ReceivedAt,
			IsRead:     email.IsRead,
		})
	}
	return summaries, nil
}

// GetMessageBody returns one stored email's content.
func (p *Provider) GetMessageBody(ctx context.Context, cred model.Credential, messageID string) (model.MessageBody, error) {
	if cred.Address.FullAddress == "" {
		return model.MessageBody{}, driven.ErrNotAuthenticated
	}

	email, err := p.store.Get(ctx, messageID)
	if err != nil {
		return model.MessageBody{}, fmt.Errorf("%w: %v", driven.ErrFetchMessage, err)
	}
	if email == nil || email.Address != cred.Address.FullAddress {
		return model.MessageBody{}, fmt.Errorf("%w: message %s not found", driven.ErrFetchMessage, messageID)
	}

	body := model.MessageBody{Text: email.Body, HTML: email.HTML}
	if body.HTML == "" {
		body.HTML = email.Body
	}
	return body, nil
}

// MarkRead persists the read flag in the inbound store.
func (p *Provider) MarkRead(ctx context.Context, cred model.Credential, messageID string) error {
	if cred.Address.FullAddress == "" {
		return driven.ErrNotAuthenticated
	}
	if err := p.store.MarkRead(ctx, messageID); err != nil {
		return fmt.Errorf("%w: %v", driven.ErrFetchMessage, err)
	}
	return nil
}

// preview truncates a body to the summary preview length on a rune boundary.
func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength]) + "…"
}
