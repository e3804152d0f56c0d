package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, status int) (*Client, *[]sendgridMessage) {
	t.Helper()

	var received []sendgridMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var msg sendgridMessage
		require.NoError(t, json.Unmarshal(body, &msg))
		received = append(received, msg)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	client := New(Config{
		APIKey:        "test-api-key",
		FromEmail:     "noreply@svcwatch.example.com",
		FromName:      "svcwatch",
		FrontendURL:   "https://svcwatch.example.com",
		BaseURL:       server.URL,
		ResetValidity: 48 * time.Hour,
		SetupValidity: 72 * time.Hour,
	}, nil)
	return client, &received
}

func TestEnabled(t *testing.T) {
	assert.False(t, New(Config{}, nil).Enabled())
	assert.False(t, New(Config{APIKey: "k"}, nil).Enabled())
	assert.True(t, New(Config{APIKey: "k", FromEmail: "a@b.c"}, nil).Enabled())
}

func TestSendPasswordReset(t *testing.T) {
	client, received := newTestClient(t, http.StatusAccepted)

	err := client.SendPasswordReset(context.Background(), "alice@example.com", "reset-token-123")
	require.NoError(t, err)
	require.Len(t, *received, 1)

	msg := (*received)[0]
	assert.Equal(t, "noreply@svcwatch.example.com", msg.From.Email)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "alice@example.com", msg.Personalizations[0].To[0].Email)
	assert.Contains(t, msg.Subject, "Password recovery")
	require.Len(t, msg.Content, 1)
	assert.Contains(t, msg.Content[0].Value, "https://svcwatch.example.com/reset-password?token=reset-token-123")
}

func TestSendAccountCreatedCarriesSetupLink(t *testing.T) {
	client, received := newTestClient(t, http.StatusAccepted)

	err := client.SendAccountCreated(context.Background(), "bob@example.com", "bob", "setup-token-456")
	require.NoError(t, err)
	require.Len(t, *received, 1)

	msg := (*received)[0]
	assert.Contains(t, msg.Subject, "New account for user bob")
	assert.Contains(t, msg.Content[0].Value, "/setup-password?token=setup-token-456")
}

func TestSendSurfacesRejection(t *testing.T) {
	client, _ := newTestClient(t, http.StatusUnauthorized)

	err := client.SendPasswordSetup(context.Background(), "alice@example.com", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSendFailsWhenDisabled(t *testing.T) {
	client := New(Config{}, nil)
	err := client.SendPasswordReset(context.Background(), "alice@example.com", "tok")
	require.Error(t, err)
}
