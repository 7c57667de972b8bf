package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"tempbox/internal/application"
)

// maxWebhookBody caps inbound webhook payloads at 10MB.
const maxWebhookBody = 10 << 20

// ReceiveEmail accepts an inbound email delivery from a forwarding service.
// Both JSON and form-encoded payloads are accepted; field names follow the
// conventions of SendGrid's inbound parse and Mailgun's routes. Logical
// rejections (unknown or expired recipient) are acknowledged with 200 so the
// sender does not retry; only malformed payloads get a 4xx.
func (h *Handler) ReceiveEmail(w http.ResponseWriter, r *http.Request) {
	if h.inbound == nil {
		writeError(w, http.StatusServiceUnavailable, "webhook receiver not configured")
		return
	}

	fields, err := flattenPayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.inbound.Accept(r.Context(), fields)
	if err != nil {
		if errors.Is(err, application.ErrMalformedPayload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to store inbound email", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{Outcome: string(outcome)})
}

// flattenPayload reduces the request body to a flat string map regardless of
// encoding. Nested JSON values and repeated form fields are not meaningful
// for email delivery payloads, so only top-level scalars are kept.
func flattenPayload(r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxWebhookBody)

	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil && contentType != "" {
		return nil, fmt.Errorf("unparseable content type %q", contentType)
	}

	if mediaType == "application/json" || mediaType == "" {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}

		fields := make(map[string]string, len(raw))
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				fields[k] = val
			case float64, bool:
				fields[k] = fmt.Sprint(val)
			}
		}
		return fields, nil
	}

	if mediaType == "application/x-www-form-urlencoded" || strings.HasPrefix(mediaType, "multipart/") {
		if strings.HasPrefix(mediaType, "multipart/") {
			err = r.ParseMultipartForm(maxWebhookBody)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}

		fields := make(map[string]string, len(r.Form))
		for k, vs := range r.Form {
			if len(vs) > 0 {
				fields[k] = vs[0]
			}
		}
		return fields, nil
	}

	return nil, fmt.Errorf("unsupported content type %q", mediaType)
}
