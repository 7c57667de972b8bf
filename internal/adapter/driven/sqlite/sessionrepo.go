package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// sessionKey is the fixed key of the single session row.
const sessionKey = "current"

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port
// interface. It persists at most one session record under a fixed key.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo backed by the given DB.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Save stores or replaces the session record.
func (r *SessionRepo) Save(ctx context.Context, rec model.SessionRecord) error {
	const query = `
		INSERT OR REPLACE INTO session
			(key, account_id, local_part, domain, full_address, auth_token, provider, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var expiresAt any
	if rec.Address.ExpiresAt != nil {
		expiresAt = rec.Address.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		sessionKey,
		rec.AccountID,
		rec.Address.LocalPart,
		rec.Address.Domain,
		rec.Address.FullAddress,
		rec.AuthToken,
		string(rec.Provider),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.Address.FullAddress, err)
	}
	return nil
}

// Load returns the persisted record, or nil if none exists.
func (r *SessionRepo) Load(ctx context.Context) (*model.SessionRecord, error) {
	const query = `
		SELECT account_id, local_part, domain, full_address, auth_token, provider, created_at, expires_at
		FROM session WHERE key = ?`

	var (
		rec       model.SessionRecord
		provider  string
		createdAt string
		expiresAt sql.NullString
	)
	err := r.db.Reader.QueryRowContext(ctx, query, sessionKey).Scan(
		&rec.AccountID,
		&rec.Address.LocalPart,
		&rec.Address.Domain,
		&rec.Address.FullAddress,
		&rec.AuthToken,
		&provider,
		&createdAt,
		&expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	rec.Provider = model.ProviderKind(provider)
	rec.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	rec.Address.CreatedAt = rec.CreatedAt

	if expiresAt.Valid {
		t, err := parseTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse expires_at: %w", err)
		}
		rec.Address.ExpiresAt = &t
	}

	return &rec, nil
}

// Clear removes the persisted record. Clearing an empty store is not an
// error.
func (r *SessionRepo) Clear(ctx context.Context) error {
	const query = `DELETE FROM session WHERE key = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
