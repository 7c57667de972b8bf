// Package mailtm implements the MailProvider and DomainSource ports against
// the Mail.tm REST API.
package mailtm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gregjones/httpcache"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.MailProvider = (*Client)(nil)
	_ driven.DomainSource = (*Client)(nil)
)

// Client implements the driven.MailProvider port against the Mail.tm API.
// The HTTP transport is wrapped with httpcache so repeated GETs (domains,
// unchanged inboxes) are served from ETag-validated memory cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	addressTTL time.Duration // advisory only; compared against token expiry
}

// NewClient creates a Mail.tm client with an in-memory caching transport.
func NewClient(baseURL string, addressTTL time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   15 * time.Second,
		},
		addressTTL: addressTTL,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. Intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, addressTTL time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		addressTTL: addressTTL,
	}
}

// Local reports false: all inbox operations are remote.
func (c *Client) Local() bool { return false }

// hydraDomains is the Mail.tm domain listing envelope.
type hydraDomains struct {
	Member []struct {
		Domain string `json:"domain"`
	} `json:"hydra:member"`
}

// FetchDomains lists the provider's active sending domains. Mail.tm has no
// "new vs others" split, so the first listed domain is the featured one.
func (c *Client) FetchDomains(ctx context.Context) (model.DomainList, error) {
	var envelope hydraDomains
	if err := c.get(ctx, "/domains", "", &envelope); err != nil {
		return model.DomainList{}, fmt.Errorf("%w: %v", driven.ErrDomainUnavailable, err)
	}

	domains := make([]string, 0, len(envelope.Member))
	for _, m := range envelope.Member {
		if m.Domain != "" {
			domains = append(domains, m.Domain)
		}
	}
	if len(domains) == 0 {
		return model.DomainList{}, fmt.Errorf("%w: empty listing", driven.ErrDomainUnavailable)
	}

	return model.DomainList{Featured: domains[0], Others: domains[1:]}, nil
}

// CreateAccount runs the three-step provisioning sequence: domain listing,
// account creation, token issuance. The whole operation aborts on the first
// failing step; no partial account is retained.
func (c *Client) CreateAccount(ctx context.Context) (model.Credential, error) {
	list, err := c.FetchDomains(ctx)
	if err != nil {
		return model.Credential{}, err
	}

	now := time.Now()
	addr := model.NewRandomAddress(list.Featured, now)
	password := model.RandomPassword()

	payload := map[string]string{"address": addr.FullAddress, "password": password}

	var account struct {
		ID      string `json:"id"`
		Address string `json:"address"`
	}
	if err := c.post(ctx, "/accounts", payload, &account); err != nil {
		return model.Credential{}, fmt.Errorf("%w: %v", driven.ErrAccountCreationFailed, err)
	}

	var token struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/token", payload, &token); err != nil {
		return model.Credential{}, fmt.Errorf("%w: %v", driven.ErrAuthenticationFailed, err)
	}

	c.checkTokenExpiry(token.Token, now)

	return model.Credential{
		AccountID: account.ID,
		Address:   addr,
		AuthToken: token.Token,
		CreatedAt: now,
	}, nil
}

// hydraMessage is one entry of the Mail.tm message listing.
type hydraMessage struct {
	ID   string `json:"id"`
	From struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"from"`
	Subject   string    `json:"subject"`
	Intro     string    `json:"intro"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListMessages returns the inbox for the credential, newest first.
func (c *Client) ListMessages(ctx context.Context, cred model.Credential) ([]model.MessageSummary, error) {
	if !cred.HasToken() {
		return nil, driven.ErrNotAuthenticated
	}

	var envelope struct {
		Member []hydraMessage `json:"hydra:member"`
	}
	if err := c.get(ctx, "/messages", cred.AuthToken, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrFetchMessages, err)
	}

	summaries := make([]model.MessageSummary, 0, len(envelope.Member))
	for _, m := range envelope.Member {
		summaries = append(summaries, mapSummary(m))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].ReceivedAt.After(summaries[j].ReceivedAt)
	})

	return summaries, nil
}

// GetMessageBody fetches one message's full content. Mail.tm returns html as
// a fragment array; fragments are joined, falling back to the text part.
func (c *Client) GetMessageBody(ctx context.Context, cred model.Credential, messageID string) (model.MessageBody, error) {
	if !cred.HasToken() {
		return model.MessageBody{}, driven.ErrNotAuthenticated
	}

	var message struct {
		Text string   `json:"text"`
		HTML []string `json:"html"`
	}
	if err := c.get(ctx, "/messages/"+messageID, cred.AuthToken, &message); err != nil {
		return model.MessageBody{}, fmt.Errorf("%w: %v", driven.ErrFetchMessage, err)
	}

	body := model.MessageBody{
		Text: message.Text,
		HTML: strings.Join(message.HTML, ""),
	}
	if body.HTML == "" {
		body.HTML = message.Text
	}
	return body, nil
}

// MarkRead flips the provider-side seen flag via a JSON merge patch.
func (c *Client) MarkRead(ctx context.Context, cred model.Credential, messageID string) error {
	if !cred.HasToken() {
		return driven.ErrNotAuthenticated
	}

	body := bytes.NewReader([]byte(`{"seen":true}`))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/messages/"+messageID, body)
	if err != nil {
		return fmt.Errorf("%w: %v", driven.ErrFetchMessage, err)
	}
	req.Header.Set("Content-Type", "application/merge-patch+json")
	req.Header.Set("Authorization", "Bearer "+cred.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", driven.ErrFetchMessage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: mark read returned %d", driven.ErrFetchMessage, resp.StatusCode)
	}
	return nil
}

// mapSummary converts a Mail.tm message entry to the domain summary, with
// the original UI's display fallbacks for sender and subject.
func mapSummary(m hydraMessage) model.MessageSummary {
	from := m.From.Name
	if from == "" {
		from = m.From.Address
	}
	if from == "" {
		from = "Unknown"
	}

	subject := m.Subject
	if subject == "" {
		subject = "(No subject)"
	}

	return model.MessageSummary{
		ID:         m.ID,
		From:       from,
		Subject:    subject,
		Preview:    m.Intro,
		ReceivedAt: m.CreatedAt,
		IsRead:     m.Seen,
	}
}

// checkTokenExpiry decodes the bearer token without verification and warns
// if the provider's token lifetime undercuts the configured address TTL.
// Advisory only; the session's expiry clock is owned by the lifecycle.
func (c *Client) checkTokenExpiry(token string, issuedAt time.Time) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if c.addressTTL > 0 && exp.Time.Before(issuedAt.Add(c.addressTTL)) {
		slog.Warn("provider token expires before configured address TTL",
			"token_expires_at", exp.Time,
			"address_ttl", c.addressTTL,
		)
	}
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// post sends a JSON body and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
