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

// Compile-time interface satisfaction check.
var _ driven.InboundStore = (*InboundRepo)(nil)

// InboundRepo is the SQLite implementation of the InboundStore port
// interface, holding webhook-received emails for the local-only provider.
type InboundRepo struct {
	db *DB
}

// NewInboundRepo creates a new InboundRepo backed by the given DB.
func NewInboundRepo(db *DB) *InboundRepo {
	return &InboundRepo{db: db}
}

// Save stores one inbound email.
func (r *InboundRepo) Save(ctx context.Context, email model.InboundEmail) error {
	const query = `
		INSERT INTO inbound_emails (id, address, sender, subject, body, html, is_read, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		email.ID,
		email.Address,
		email.Sender,
		email.Subject,
		email.Body,
		email.HTML,
		email.IsRead,
		email.ReceivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save inbound email %s: %w", email.ID, err)
	}
	return nil
}

// ListByAddress returns all stored emails for an address, newest first.
func (r *InboundRepo) ListByAddress(ctx context.Context, address string) ([]model.InboundEmail, error) {
	const query = `
		SELECT id, address, sender, subject, body, html, is_read, received_at
		FROM inbound_emails WHERE address = ? ORDER BY received_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("list inbound emails for %s: %w", address, err)
	}
	defer rows.Close()

	var emails []model.InboundEmail
	for rows.Next() {
		email, err := scanInbound(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inbound emails: %w", err)
	}

	return emails, nil
}

// Get returns one stored email by ID, or nil if absent.
func (r *InboundRepo) Get(ctx context.Context, id string) (*model.InboundEmail, error) {
	const query = `
		SELECT id, address, sender, subject, body, html, is_read, received_at
		FROM inbound_emails WHERE id = ?`

	email, err := scanInbound(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inbound email %s: %w", id, err)
	}
	return email, nil
}

// MarkRead flips the stored read flag.
func (r *InboundRepo) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE inbound_emails SET is_read = 1 WHERE id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark inbound email %s read: %w", id, err)
	}
	return nil
}

// DeleteByAddress removes all emails for an address.
func (r *InboundRepo) DeleteByAddress(ctx context.Context, address string) error {
	const query = `DELETE FROM inbound_emails WHERE address = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, address); err != nil {
		return fmt.Errorf("delete inbound emails for %s: %w", address, err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanInbound.
type scanner interface {
	Scan(dest ...any) error
}

func scanInbound(s scanner) (*model.InboundEmail, error) {
	var (
		email      model.InboundEmail
		receivedAt string
	)
	err := s.Scan(
		&email.ID,
		&email.Address,
		&email.Sender,
		&email.Subject,
		&email.Body,
		&email.HTML,
		&email.IsRead,
		&receivedAt,
	)
	if err != nil {
		return nil, err
	}

	email.ReceivedAt, err = parseTime(receivedAt)
	if err != nil {
		return nil, fmt.Errorf("parse received_at: %w", err)
	}

	return &email, nil
}
