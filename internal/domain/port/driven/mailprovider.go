package driven

import (
	"context"

	"tempbox/internal/domain/model"
)

// MailProvider defines the driven port for a disposable-mail backend.
// The three variants (Mail.tm REST, relay function, local-only) implement the
// same capability surface; the session lifecycle is parameterized over it.
//
// Providers are stateless between calls: persisting the credential returned
// by CreateAccount is the caller's job.
type MailProvider interface {
	// CreateAccount provisions a new address and yields a durable credential.
	// The whole operation aborts on the first failing step; failures wrap
	// ErrDomainUnavailable, ErrAccountCreationFailed, ErrAuthenticationFailed
	// or ErrBackendUnavailable.
	CreateAccount(ctx context.Context) (model.Credential, error)

	// ListMessages returns the inbox for the credential, newest first.
	// Failures wrap ErrFetchMessages; a failure means "no change", not an
	// empty inbox.
	ListMessages(ctx context.Context, cred model.Credential) ([]model.MessageSummary, error)

	// GetMessageBody fetches one message's full content by ID.
	GetMessageBody(ctx context.Context, cred model.Credential, messageID string) (model.MessageBody, error)

	// MarkRead flips the provider-side read flag. Callers must not update
	// local read state until it returns nil, except for providers whose
	// Local() is true, where local state is authoritative.
	MarkRead(ctx context.Context, cred model.Credential, messageID string) error

	// Local reports whether the provider performs no remote calls for inbox
	// operations.
	Local() bool
}

// DomainSource yields a provider's live domain listing. Implemented by the
// Mail.tm client and the YopMail scrape proxy client; the domain directory
// falls back to its static table when a source fails.
type DomainSource interface {
	FetchDomains(ctx context.Context) (model.DomainList, error)
}
