package model

import "time"

// Credential is the durable session credential issued by an account provider.
// It is owned by the session lifecycle; the inbox sync path holds a read-only
// reference and never persists it independently.
type Credential struct {
	AccountID string
	Address   Address
	AuthToken string
	CreatedAt time.Time
}

// HasToken reports whether the credential carries a provider auth token.
// Local-only credentials have none.
func (c Credential) HasToken() bool {
	return c.AuthToken != ""
}
