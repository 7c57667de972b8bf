package driven

import (
	"context"

	"tempbox/internal/domain/model"
)

// SessionStore defines the driven port for persisting the single active
// session record. There is at most one record at a time, stored under a
// fixed key.
type SessionStore interface {
	// Save stores or replaces the session record.
	Save(ctx context.Context, rec model.SessionRecord) error

	// Load returns the persisted record, or nil if none exists.
	Load(ctx context.Context) (*model.SessionRecord, error)

	// Clear removes the persisted record. Clearing an empty store is not
	// an error.
	Clear(ctx context.Context) error
}

// DomainCacheStore defines the driven port for the per-calendar-day domain
// cache.
type DomainCacheStore interface {
	// Get returns the entry fetched on the given date, or nil if absent.
	Get(ctx context.Context, date string) (*model.DomainCacheEntry, error)

	// Put stores the entry, replacing any entry for the same date and
	// discarding entries from prior days.
	Put(ctx context.Context, entry model.DomainCacheEntry) error
}

// InboundStore defines the driven port for webhook-received emails, which
// back the local-only provider's inbox.
type InboundStore interface {
	// Save stores one inbound email.
	Save(ctx context.Context, email model.InboundEmail) error

	// ListByAddress returns all stored emails for an address, newest first.
	ListByAddress(ctx context.Context, address string) ([]model.InboundEmail, error)

	// Get returns one stored email by ID, or nil if absent.
	Get(ctx context.Context, id string) (*model.InboundEmail, error)

	// MarkRead flips the stored read flag.
	MarkRead(ctx context.Context, id string) error

	// DeleteByAddress removes all emails for an address. Used when the
	// address is regenerated; there is no cross-address retention.
	DeleteByAddress(ctx context.Context, address string) error
}
