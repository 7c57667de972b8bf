package model

import "time"

// MessageSummary is one inbox entry. Summaries are ordered newest first and
// keyed uniquely by ID; only IsRead is ever mutated in place.
type MessageSummary struct {
	ID         string
	From       string
	Subject    string
	Preview    string
	ReceivedAt time.Time
	IsRead     bool
}

// MessageBody is the full content of a single message, fetched lazily by ID.
type MessageBody struct {
	Text string
	HTML string
}

// InboundEmail is a message delivered through the webhook receiver and stored
// for the local-only provider's inbox.
type InboundEmail struct {
	ID         string
	Address    string
	Sender     string
	Subject    string
	Body       string
	HTML       string
	IsRead     bool
	ReceivedAt time.Time
}
