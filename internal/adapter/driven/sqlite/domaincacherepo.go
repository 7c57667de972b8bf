package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DomainCacheStore = (*DomainCacheRepo)(nil)

// DomainCacheRepo is the SQLite implementation of the DomainCacheStore port
// interface. The domain list is stored as a JSON array; at most one row per
// calendar day is kept, and rows from prior days are discarded on write.
type DomainCacheRepo struct {
	db *DB
}

// NewDomainCacheRepo creates a new DomainCacheRepo backed by the given DB.
func NewDomainCacheRepo(db *DB) *DomainCacheRepo {
	return &DomainCacheRepo{db: db}
}

// Get returns the entry fetched on the given date, or nil if absent.
func (r *DomainCacheRepo) Get(ctx context.Context, date string) (*model.DomainCacheEntry, error) {
	const query = `SELECT featured_domain, domains FROM domain_cache WHERE fetched_on = ?`

	var (
		entry   model.DomainCacheEntry
		domains string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, date).Scan(&entry.FeaturedDomain, &domains)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get domain cache for %s: %w", date, err)
	}

	if err := json.Unmarshal([]byte(domains), &entry.Domains); err != nil {
		return nil, fmt.Errorf("decode domain cache for %s: %w", date, err)
	}
	entry.FetchedOnDate = date

	return &entry, nil
}

// Put stores the entry, replacing any entry for the same date and discarding
// stale entries from prior days.
func (r *DomainCacheRepo) Put(ctx context.Context, entry model.DomainCacheEntry) error {
	domains, err := json.Marshal(entry.Domains)
	if err != nil {
		return fmt.Errorf("encode domain cache for %s: %w", entry.FetchedOnDate, err)
	}

	if _, err := r.db.Writer.ExecContext(ctx,
		`DELETE FROM domain_cache WHERE fetched_on <> ?`, entry.FetchedOnDate); err != nil {
		return fmt.Errorf("prune domain cache: %w", err)
	}

	const query = `INSERT OR REPLACE INTO domain_cache (fetched_on, featured_domain, domains) VALUES (?, ?, ?)`
	if _, err := r.db.Writer.ExecContext(ctx, query, entry.FetchedOnDate, entry.FeaturedDomain, string(domains)); err != nil {
		return fmt.Errorf("put domain cache for %s: %w", entry.FetchedOnDate, err)
	}
	return nil
}
