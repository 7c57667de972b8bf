package model

// SessionState represents the lifecycle state of the active session.
type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionRestoring     SessionState = "restoring"
	SessionActive        SessionState = "active"
	SessionExpired       SessionState = "expired"
)

// ProviderKind selects the account provider variant.
type ProviderKind string

const (
	// ProviderMailTM calls the Mail.tm REST API directly.
	ProviderMailTM ProviderKind = "mailtm"
	// ProviderRelay delegates to a server-side relay function.
	ProviderRelay ProviderKind = "relay"
	// ProviderLocal synthesizes addresses without network calls and reads
	// the webhook-fed local inbox.
	ProviderLocal ProviderKind = "local"
)

// Valid reports whether the kind names a known provider variant.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderMailTM, ProviderRelay, ProviderLocal:
		return true
	default:
		return false
	}
}
