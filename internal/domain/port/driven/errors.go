package driven

import "errors"

// Provider failure taxonomy. Adapters wrap transport detail around these
// sentinels with %w so callers can branch with errors.Is.
var (
	// ErrDomainUnavailable means no sending domains could be resolved.
	ErrDomainUnavailable = errors.New("no sending domains available")

	// ErrAccountCreationFailed means the provider rejected account creation.
	// No partial account is retained by the caller.
	ErrAccountCreationFailed = errors.New("account creation failed")

	// ErrAuthenticationFailed means token issuance for a created account failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrBackendUnavailable means the relay backend client is not configured.
	// Relay operations fail fast with this instead of attempting direct calls.
	ErrBackendUnavailable = errors.New("backend not connected")

	// ErrNotAuthenticated means an inbox operation was attempted without a
	// valid credential.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrFetchMessages means the message listing failed. Callers treat this
	// as "no change", never as an empty inbox.
	ErrFetchMessages = errors.New("failed to fetch messages")

	// ErrFetchMessage means a single message body fetch failed.
	ErrFetchMessage = errors.New("failed to fetch message")

	// ErrAddressExhausted means no domain was available to generate an
	// address. Fatal for the attempt, retryable by the caller.
	ErrAddressExhausted = errors.New("no domains available to generate address")
)
