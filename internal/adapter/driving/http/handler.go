// Package httphandler is the HTTP driving adapter: the JSON API consumed by
// the front end plus the inbound email webhook.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"tempbox/internal/application"
	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// Handler serves the REST API.
type Handler struct {
	session *application.SessionService
	domains *application.DomainDirectory
	inbound *application.InboundService
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. inbound may be
// nil when no webhook receiver is configured.
func NewHandler(
	session *application.SessionService,
	domains *application.DomainDirectory,
	inbound *application.InboundService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		session: session,
		domains: domains,
		inbound: inbound,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with CORS, logging, and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/session", h.GetSession)
	mux.HandleFunc("POST /api/v1/session/new", h.NewAddress)
	mux.HandleFunc("POST /api/v1/provider", h.SwitchProvider)
	mux.HandleFunc("GET /api/v1/messages", h.ListMessages)
	mux.HandleFunc("POST /api/v1/messages/refresh", h.RefreshMessages)
	mux.HandleFunc("GET /api/v1/messages/{id}", h.GetMessage)
	mux.HandleFunc("POST /api/v1/messages/{id}/read", h.MarkMessageRead)
	mux.HandleFunc("GET /api/v1/domains", h.ListDomains)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("POST /webhook/email", h.ReceiveEmail)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = c.Handler(wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// GetSession returns the current session snapshot.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toSessionResponse(h.session.Snapshot()))
}

// NewAddress discards the current address and provisions a fresh one.
func (h *Handler) NewAddress(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RequestNewAddress(r.Context()); err != nil {
		h.logger.Error("failed to create new address", "error", err)
		writeError(w, http.StatusBadGateway, "address creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(h.session.Snapshot()))
}

// SwitchProvider changes the active mail provider variant and regenerates the
// session against it.
func (h *Handler) SwitchProvider(w http.ResponseWriter, r *http.Request) {
	var req SwitchProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := model.ProviderKind(req.Provider)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown provider: "+req.Provider)
		return
	}

	if err := h.session.SwitchProvider(r.Context(), kind); err != nil {
		h.logger.Error("failed to switch provider", "provider", kind, "error", err)
		writeError(w, http.StatusBadGateway, "provider switch failed")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(h.session.Snapshot()))
}

// ListMessages returns the current inbox message list.
func (h *Handler) ListMessages(w http.ResponseWriter, _ *http.Request) {
	snap := h.session.Snapshot()

	resp := make([]MessageResponse, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		resp = append(resp, toMessageResponse(m))
	}

	writeJSON(w, http.StatusOK, resp)
}

// RefreshMessages triggers a synchronous inbox refresh and returns the
// resulting message list.
func (h *Handler) RefreshMessages(w http.ResponseWriter, r *http.Request) {
	if err := h.session.RefreshInbox(r.Context()); err != nil {
		if errors.Is(err, driven.ErrNotAuthenticated) {
			writeError(w, http.StatusConflict, "no active session")
			return
		}
		h.logger.Error("manual inbox refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "inbox refresh failed")
		return
	}

	snap := h.session.Snapshot()
	resp := make([]MessageResponse, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		resp = append(resp, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMessage returns the full body of one message.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, err := h.session.MessageBody(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, driven.ErrNotAuthenticated):
			writeError(w, http.StatusConflict, "no active session")
		case errors.Is(err, driven.ErrFetchMessage):
			writeError(w, http.StatusNotFound, "message not found")
		default:
			h.logger.Error("failed to fetch message body", "message", id, "error", err)
			writeError(w, http.StatusBadGateway, "message fetch failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageBodyResponse{
		ID:   id,
		Text: body.Text,
		HTML: body.HTML,
	})
}

// MarkMessageRead flips a message's read flag.
func (h *Handler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.session.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrNotAuthenticated) {
			writeError(w, http.StatusConflict, "no active session")
			return
		}
		h.logger.Error("failed to mark message read", "message", id, "error", err)
		writeError(w, http.StatusBadGateway, "mark read failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListDomains returns today's domain list, featured entry first. The refresh
// query parameter bypasses the daily cache.
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "1"
	domains := h.domains.FetchDomains(r.Context(), force)

	writeJSON(w, http.StatusOK, DomainsResponse{
		Featured: h.domains.FeaturedDomain(r.Context()),
		Domains:  domains,
	})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
