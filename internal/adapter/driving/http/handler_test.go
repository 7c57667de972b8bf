package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempbox/internal/adapter/driven/localmail"
	httphandler "tempbox/internal/adapter/driving/http"
	"tempbox/internal/application"
	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// --- In-memory stores ---

type memSessionStore struct {
	mu  sync.Mutex
	rec *model.SessionRecord
}

func (m *memSessionStore) Save(_ context.Context, rec model.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = &rec
	return nil
}

func (m *memSessionStore) Load(_ context.Context) (*model.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec, nil
}

func (m *memSessionStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}

type memInboundStore struct {
	mu     sync.Mutex
	emails map[string]model.InboundEmail
}

func newMemInboundStore() *memInboundStore {
	return &memInboundStore{emails: map[string]model.InboundEmail{}}
}

func (m *memInboundStore) Save(_ context.Context, email model.InboundEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[email.ID] = email
	return nil
}

func (m *memInboundStore) ListByAddress(_ context.Context, address string) ([]model.InboundEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.InboundEmail
	for _, e := range m.emails {
		if e.Address == address {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memInboundStore) Get(_ context.Context, id string) (*model.InboundEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.emails[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *memInboundStore) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.emails[id]
	e.IsRead = true
	m.emails[id] = e
	return nil
}

func (m *memInboundStore) DeleteByAddress(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.emails {
		if e.Address == address {
			delete(m.emails, id)
		}
	}
	return nil
}

// unavailableProvider stands in for variants that cannot be configured in
// tests; every operation fails.
type unavailableProvider struct{}

func (unavailableProvider) CreateAccount(_ context.Context) (model.Credential, error) {
	return model.Credential{}, driven.ErrBackendUnavailable
}

func (unavailableProvider) ListMessages(_ context.Context, _ model.Credential) ([]model.MessageSummary, error) {
	return nil, driven.ErrBackendUnavailable
}

func (unavailableProvider) GetMessageBody(_ context.Context, _ model.Credential, _ string) (model.MessageBody, error) {
	return model.MessageBody{}, driven.ErrBackendUnavailable
}

func (unavailableProvider) MarkRead(_ context.Context, _ model.Credential, _ string) error {
	return driven.ErrBackendUnavailable
}

func (unavailableProvider) Local() bool { return false }

// --- Fixture ---

// newTestServer stands up the full API over the local-only provider with
// in-memory stores: no network, real session semantics.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemInboundStore()
	domains := application.NewDomainDirectory(nil, nil, application.SystemClock)
	provider := localmail.New(domains, store)
	providers := application.NewMailProviderProvider(provider, model.ProviderLocal)

	factory := func(kind model.ProviderKind) (driven.MailProvider, error) {
		if kind == model.ProviderLocal {
			return provider, nil
		}
		return unavailableProvider{}, nil
	}

	session := application.NewSessionService(
		providers,
		&memSessionStore{},
		store,
		factory,
		application.SystemClock,
		time.Hour,
		30*time.Second,
	)
	require.NoError(t, session.Init(context.Background()))

	inboundSvc := application.NewInboundService(store, session, application.SystemClock)

	handler := httphandler.NewHandler(session, domains, inboundSvc, logger)
	srv := httptest.NewServer(httphandler.NewServeMux(handler, logger, []string{"*"}))
	t.Cleanup(srv.Close)

	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	resp, err := srv.Client().Post(srv.URL+path, "application/json", reader)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// currentAddress reads the active address off the session endpoint.
func currentAddress(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var session httphandler.SessionResponse
	resp := getJSON(t, srv, "/api/v1/session", &session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, session.Address)
	return session.Address
}

// --- Tests ---

func TestGetSession(t *testing.T) {
	srv := newTestServer(t)

	var session httphandler.SessionResponse
	resp := getJSON(t, srv, "/api/v1/session", &session)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", session.State)
	assert.Equal(t, "local", session.Provider)
	assert.NotEmpty(t, session.Address)
	assert.NotEmpty(t, session.ExpiresAt)
	assert.Positive(t, session.ExpirySeconds)
	assert.Contains(t, session.InboxURL, "yopmail.com")
	assert.NotNil(t, session.Messages)
}

func TestNewAddress_ReplacesCurrent(t *testing.T) {
	srv := newTestServer(t)
	before := currentAddress(t, srv)

	var session httphandler.SessionResponse
	resp := postJSON(t, srv, "/api/v1/session/new", nil, &session)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEqual(t, before, session.Address)
}

func TestSwitchProvider_Validation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/api/v1/provider", map[string]string{"provider": "carrier-pigeon"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSwitchProvider_UnavailableBackend(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/api/v1/provider", map[string]string{"provider": "relay"}, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestListDomains(t *testing.T) {
	srv := newTestServer(t)

	var domains httphandler.DomainsResponse
	resp := getJSON(t, srv, "/api/v1/domains", &domains)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, domains.Domains)
	assert.Equal(t, domains.Featured, domains.Domains[0])
}

func TestMessageFlow_DeliverListReadMarkRead(t *testing.T) {
	srv := newTestServer(t)
	address := currentAddress(t, srv)

	// Deliver through the webhook.
	var hook httphandler.WebhookResponse
	resp := postJSON(t, srv, "/webhook/email", map[string]string{
		"recipient": address,
		"sender":    "alice@example.org",
		"subject":   "greetings",
		"text":      "hello there",
		"html":      "<p>hello there</p>",
	}, &hook)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "stored", hook.Outcome)

	// Refresh and list.
	var messages []httphandler.MessageResponse
	resp = postJSON(t, srv, "/api/v1/messages/refresh", nil, &messages)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, messages, 1)
	assert.Equal(t, "greetings", messages[0].Subject)
	assert.False(t, messages[0].IsRead)

	// Fetch the body.
	var body httphandler.MessageBodyResponse
	resp = getJSON(t, srv, "/api/v1/messages/"+messages[0].ID, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello there", body.Text)
	assert.Contains(t, body.HTML, "<p>hello there</p>")

	// Mark read.
	resp = postJSON(t, srv, "/api/v1/messages/"+messages[0].ID+"/read", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = postJSON(t, srv, "/api/v1/messages/refresh", nil, &messages)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsRead)
}

func TestGetMessage_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv, "/api/v1/messages/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebhook_UnknownAddressAcknowledged(t *testing.T) {
	srv := newTestServer(t)

	var hook httphandler.WebhookResponse
	resp := postJSON(t, srv, "/webhook/email", map[string]string{
		"recipient": "stranger@nowhere.example",
		"sender":    "alice@example.org",
	}, &hook)

	assert.Equal(t, http.StatusOK, resp.StatusCode, "rejections are acknowledged so the sender does not retry")
	assert.Equal(t, "unknown_address", hook.Outcome)
}

func TestWebhook_MalformedPayload(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/webhook/email", map[string]string{
		"recipient": currentAddress(t, srv),
	}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhook_InvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Post(srv.URL+"/webhook/email", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhook_FormEncodedDelivery(t *testing.T) {
	srv := newTestServer(t)
	address := currentAddress(t, srv)

	form := url.Values{}
	form.Set("recipient", address)
	form.Set("sender", "bob@example.org")
	form.Set("subject", "form post")
	form.Set("body-plain", "from a form")

	resp, err := srv.Client().Post(srv.URL+"/webhook/email", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var hook httphandler.WebhookResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hook))
	assert.Equal(t, "stored", hook.Outcome)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var health httphandler.HealthResponse
	resp := getJSON(t, srv, "/api/v1/health", &health)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
