package relay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempbox/internal/adapter/driven/relay"
	"tempbox/internal/domain/model"
	"tempbox/internal/domain/port/driven"
)

func newTestClient(t *testing.T, handler http.Handler) *relay.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return relay.NewClientWithHTTPClient(srv.Client(), srv.URL, "test-key")
}

func TestCreateAccount_ParsesRelayResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("apikey"))

		var rpc map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rpc))
		assert.Equal(t, "create", rpc["action"])

		_, _ = w.Write([]byte(`{"id":"acct-9","address":"xyz@relay.example","token":"tok-9"}`))
	}))

	cred, err := client.CreateAccount(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "acct-9", cred.AccountID)
	assert.Equal(t, "xyz", cred.Address.LocalPart)
	assert.Equal(t, "relay.example", cred.Address.Domain)
	assert.Equal(t, "tok-9", cred.AuthToken)
}

func TestCreateAccount_IncompleteAccountIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"acct-9","address":"xyz@relay.example"}`))
	}))

	_, err := client.CreateAccount(context.Background())

	require.ErrorIs(t, err, driven.ErrAccountCreationFailed)
}

func TestUnconfiguredClientFailsFast(t *testing.T) {
	client := relay.NewClient("", "")

	assert.False(t, client.Available())

	_, err := client.CreateAccount(context.Background())
	require.ErrorIs(t, err, driven.ErrBackendUnavailable)
}

func TestListMessages_SendsTokenAndSortsNewestFirst(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rpc map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rpc))
		assert.Equal(t, "getMessages", rpc["action"])
		assert.Equal(t, "tok-1", rpc["token"])

		_, _ = w.Write([]byte(`[
			{"id":"old","from":{"address":"a@b.c"},"subject":"s1","createdAt":"2025-06-01T10:00:00Z"},
			{"id":"new","from":{"address":"a@b.c"},"subject":"s2","createdAt":"2025-06-01T11:00:00Z"}
		]`))
	}))

	msgs, err := client.ListMessages(context.Background(), model.Credential{AuthToken: "tok-1"})

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "new", msgs[0].ID)
}

func TestCall_LogicalErrorOnHTTP200(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"upstream quota exceeded"}`))
	}))

	_, err := client.CreateAccount(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream quota exceeded")
}

func TestMarkRead_SendsMessageID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rpc map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rpc))
		assert.Equal(t, "markAsRead", rpc["action"])
		assert.Equal(t, "m1", rpc["messageId"])

		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	err := client.MarkRead(context.Background(), model.Credential{AuthToken: "tok"}, "m1")

	require.NoError(t, err)
}

func TestGetMessageBody_JoinsFragments(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text":"plain","html":["<p>a</p>","<p>b</p>"]}`))
	}))

	body, err := client.GetMessageBody(context.Background(), model.Credential{AuthToken: "tok"}, "m1")

	require.NoError(t, err)
	assert.Equal(t, "<p>a</p><p>b</p>", body.HTML)
}

func TestWithoutToken_NoRelayCall(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected without a token")
	}))

	_, err := client.ListMessages(context.Background(), model.Credential{})
	require.ErrorIs(t, err, driven.ErrNotAuthenticated)

	err = client.MarkRead(context.Background(), model.Credential{}, "m1")
	require.ErrorIs(t, err, driven.ErrNotAuthenticated)
}
