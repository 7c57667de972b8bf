package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"tempbox/internal/application"
	"tempbox/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SessionResponse is the JSON representation of the session snapshot.
type SessionResponse struct {
	State              string            `json:"state"`
	Provider           string            `json:"provider"`
	Address            string            `json:"address"`
	CreatedAt          string            `json:"created_at,omitempty"`
	ExpiresAt          string            `json:"expires_at,omitempty"`
	ExpirySeconds      int               `json:"expiry_seconds"`
	AutoRefreshSeconds int               `json:"auto_refresh_seconds"`
	InboxURL           string            `json:"inbox_url,omitempty"`
	Messages           []MessageResponse `json:"messages"`
}

// MessageResponse is the JSON representation of an inbox list entry.
type MessageResponse struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Preview    string `json:"preview"`
	ReceivedAt string `json:"received_at"`
	IsRead     bool   `json:"is_read"`
}

// MessageBodyResponse is the JSON representation of a full message body.
type MessageBodyResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	HTML string `json:"html"`
}

// DomainsResponse is the JSON representation of the domain directory listing.
type DomainsResponse struct {
	Featured string   `json:"featured"`
	Domains  []string `json:"domains"`
}

// SwitchProviderRequest is the JSON body for the provider switch endpoint.
type SwitchProviderRequest struct {
	Provider string `json:"provider"`
}

// WebhookResponse acknowledges an inbound email delivery.
type WebhookResponse struct {
	Outcome string `json:"outcome"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toSessionResponse converts a session snapshot to its JSON representation.
func toSessionResponse(snap application.Snapshot) SessionResponse {
	resp := SessionResponse{
		State:              string(snap.State),
		Provider:           string(snap.Provider),
		Address:            snap.Address,
		ExpirySeconds:      snap.ExpirySeconds,
		AutoRefreshSeconds: snap.AutoRefreshSeconds,
		InboxURL:           snap.InboxURL,
		Messages:           make([]MessageResponse, 0, len(snap.Messages)),
	}

	if !snap.CreatedAt.IsZero() {
		resp.CreatedAt = snap.CreatedAt.UTC().Format(time.RFC3339)
	}
	if snap.ExpiresAt != nil {
		resp.ExpiresAt = snap.ExpiresAt.UTC().Format(time.RFC3339)
	}
	for _, m := range snap.Messages {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}

	return resp
}

// toMessageResponse converts a message summary to its JSON representation.
func toMessageResponse(m model.MessageSummary) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		From:       m.From,
		Subject:    m.Subject,
		Preview:    m.Preview,
		ReceivedAt: m.ReceivedAt.UTC().Format(time.RFC3339),
		IsRead:     m.IsRead,
	}
}
