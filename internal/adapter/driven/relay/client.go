// Package relay implements the MailProvider port against a server-side relay
// function: a single RPC-style endpoint that performs the provider calls with
// credentials the browser never sees.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MailProvider = (*Client)(nil)

// Client implements driven.MailProvider by delegating every operation to the
// relay endpoint as {action, token, messageId}. When the backend is not
// configured, every operation fails fast with ErrBackendUnavailable instead
// of attempting direct provider calls.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a relay client. endpoint and apiKey may be empty, in
// which case the client is constructed but permanently unavailable.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, endpoint, apiKey string) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Local reports false: the relay performs remote calls server-side.
func (c *Client) Local() bool { return false }

// Available reports whether the backend client is configured.
func (c *Client) Available() bool {
	return c.endpoint != "" && c.apiKey != ""
}

// rpcRequest is the relay wire format.
type rpcRequest struct {
	Action    string `json:"action"`
	Token     string `json:"token,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// CreateAccount asks the relay to provision a new account.
func (c *Client) CreateAccount(ctx context.Context) (model.Credential, error) {
	var result struct {
		ID      string `json:"id"`
		Address string `json:"address"`
		Token   string `json:"token"`
	}
	if err := c.call(ctx, rpcRequest{Action: "create"}, &result); err != nil {
		return model.Credential{}, fmt.Errorf("%w: %v", driven.ErrAccountCreationFailed, err)
	}
	if result.Address == "" || result.Token == "" {
		return model.Credential{}, fmt.Errorf("%w: relay returned incomplete account", driven.ErrAccountCreationFailed)
	}

	now := time.Now()
	local, domain, ok := strings.Cut(result.Address, "@")
	if !ok {
		return model.Credential{}, fmt.Errorf("%w: relay returned malformed address %q", driven.ErrAccountCreationFailed, result.Address)
	}

	return model.Credential{
		AccountID: result.ID,
		Address: model.Address{
			LocalPart:   local,
			Domain:      domain,
			FullAddress: result.Address,
			CreatedAt:   now,
		},
		AuthToken: result.Token,
		CreatedAt: now,
	}, nil
}

// relayMessage mirrors the raw provider message shape the relay forwards.
type relayMessage struct {
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

// ListMessages returns the inbox, newest first.
func (c *Client) ListMessages(ctx context.Context, cred model.Credential) ([]model.MessageSummary, error) {
	if !cred.HasToken() {
		return nil, driven.ErrNotAuthenticated
	}

	var raw []relayMessage
	if err := c.call(ctx, rpcRequest{Action: "getMessages", Token: cred.AuthToken}, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrFetchMessages, err)
	}

	summaries := make([]model.MessageSummary, 0, len(raw))
	for _, m := range raw {
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
		summaries = append(summaries, model.MessageSummary{
			ID:         m.ID,
			From:       from,
			Subject:    subject,
			Preview:    m.Intro,
			ReceivedAt: m.CreatedAt,
			IsRead:     m.Seen,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].ReceivedAt.After(summaries[j].ReceivedAt)
	})

	return summaries, nil
}

// GetMessageBody fetches one message's full content through the relay.
func (c *Client) GetMessageBody(ctx context.Context, cred model.Credential, messageID string) (model.MessageBody, error) {
	if !cred.HasToken() {
		return model.MessageBody{}, driven.ErrNotAuthenticated
	}

	var message struct {
		Text string   `json:"text"`
		HTML []string `json:"html"`
	}
	if err := c.call(ctx, rpcRequest{Action: "getMessage", Token: cred.AuthToken, MessageID: messageID}, &message); err != nil {
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

// MarkRead asks the relay to flip the provider-side seen flag.
func (c *Client) MarkRead(ctx context.Context, cred model.Credential, messageID string) error {
	if !cred.HasToken() {
		return driven.ErrNotAuthenticated
	}

	var result struct {
		Success bool `json:"success"`
	}
	if err := c.call(ctx, rpcRequest{Action: "markAsRead", Token: cred.AuthToken, MessageID: messageID}, &result); err != nil {
		return fmt.Errorf("%w: %v", driven.ErrFetchMessage, err)
	}
	return nil
}

// call posts one RPC request and decodes the response into out. A response
// carrying {"error": ...} is surfaced as an error even on HTTP 200.
func (c *Client) call(ctx context.Context, rpc rpcRequest, out any) error {
	if !c.Available() {
		return driven.ErrBackendUnavailable
	}

	data, err := json.Marshal(rpc)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return err
	}

	var failure struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(buf.Bytes(), &failure); err == nil && failure.Error != "" {
		return fmt.Errorf("relay action %s: %s", rpc.Action, failure.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay action %s returned %d", rpc.Action, resp.StatusCode)
	}

	return json.Unmarshal(buf.Bytes(), out)
}
