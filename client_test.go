package authflow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	authflow "github.com/derbrid/go-authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path string
	body map[string]string
}

// identityStub serves canned envelope responses and records what it saw.
func identityStub(t *testing.T, status int, response string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		if captured != nil {
			captured.path = r.URL.Path
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			captured.body = body
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func newTestClient(baseURL string) *authflow.Client {
	return authflow.NewClient(
		authflow.SimpleConfig{BaseURL: baseURL},
		authflow.WithClientLogger(testLogger{}),
	)
}

func TestClientLoginSuccess(t *testing.T) {
	var captured capturedRequest
	srv := identityStub(t, http.StatusOK, `{
		"success": true,
		"value": {"user": {"email": "a@b.com", "email_verified": true}, "token": "T"}
	}`, &captured)
	defer srv.Close()

	client := newTestClient(srv.URL)

	result, err := client.Login(context.Background(), authflow.LoginForm{
		Email:    "a@b.com",
		Password: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "T", result.Token)
	assert.Equal(t, "a@b.com", result.User.Email)
	assert.True(t, result.User.EmailVerified)

	assert.Equal(t, "/users/login", captured.path)
	assert.Equal(t, map[string]string{"email": "a@b.com", "password": "admin"}, captured.body)
}

func TestClientLoginRejectedStatus(t *testing.T) {
	srv := identityStub(t, http.StatusUnauthorized, `{"success": false}`, nil)
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Login(context.Background(), authflow.LoginForm{Email: "a@b.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, authflow.IsTransportError(err))
}

func TestClientLoginMalformedBody(t *testing.T) {
	srv := identityStub(t, http.StatusOK, `not json at all`, nil)
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Login(context.Background(), authflow.LoginForm{Email: "a@b.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, authflow.IsTransportError(err))
}

func TestClientLoginSuccessEnvelopeWithoutToken(t *testing.T) {
	srv := identityStub(t, http.StatusOK, `{
		"success": true,
		"value": {"user": {"email": "a@b.com", "email_verified": true}}
	}`, nil)
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Login(context.Background(), authflow.LoginForm{Email: "a@b.com", Password: "x"})
	require.ErrorIs(t, err, authflow.ErrMalformedReply)
}

func TestClientLoginUnreachableService(t *testing.T) {
	srv := identityStub(t, http.StatusOK, `{}`, nil)
	srv.Close() // nobody listening anymore

	client := newTestClient(srv.URL)

	_, err := client.Login(context.Background(), authflow.LoginForm{Email: "a@b.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, authflow.IsTransportError(err))
}

func TestClientRequestActivation(t *testing.T) {
	var captured capturedRequest
	srv := identityStub(t, http.StatusOK, `{"success": true}`, &captured)
	defer srv.Close()

	client := newTestClient(srv.URL)

	err := client.RequestActivation(context.Background(), authflow.LoginForm{
		Email:    "a@b.com",
		Password: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "/users/register/request", captured.path)
	assert.Equal(t, map[string]string{"email": "a@b.com", "password": "admin"}, captured.body)
}

func TestClientConfirmVerification(t *testing.T) {
	var captured capturedRequest
	srv := identityStub(t, http.StatusOK, `{
		"success": true,
		"value": {"token": "session-token"}
	}`, &captured)
	defer srv.Close()

	client := newTestClient(srv.URL)

	token, err := client.ConfirmVerification(context.Background(), "activation-token")
	require.NoError(t, err)
	assert.Equal(t, "session-token", token)

	// The activation token travels in the body, never the URL.
	assert.Equal(t, "/users/register", captured.path)
	assert.Equal(t, map[string]string{"token": "activation-token"}, captured.body)
}

func TestClientConfirmVerificationMissingToken(t *testing.T) {
	srv := identityStub(t, http.StatusOK, `{"success": true, "value": {}}`, nil)
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.ConfirmVerification(context.Background(), "activation-token")
	require.ErrorIs(t, err, authflow.ErrMalformedReply)
}

func TestClientConfirmVerificationNotAccepted(t *testing.T) {
	srv := identityStub(t, http.StatusOK, `{"success": false}`, nil)
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.ConfirmVerification(context.Background(), "activation-token")
	require.Error(t, err)
	assert.True(t, authflow.IsTransportError(err))
}

func TestClientRequestPasswordReset(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		want     authflow.ResetOutcome
	}{
		{
			name:     "accepted with service message",
			status:   http.StatusOK,
			response: `{"success": true, "value": {"message": "Check your inbox."}}`,
			want:     authflow.ResetOutcome{Accepted: true, Success: true, Message: "Check your inbox."},
		},
		{
			name:     "accepted but not successful",
			status:   http.StatusOK,
			response: `{"success": false, "value": {"message": "Account is locked."}}`,
			want:     authflow.ResetOutcome{Accepted: true, Success: false, Message: "Account is locked."},
		},
		{
			name:     "rejected with service message",
			status:   http.StatusBadRequest,
			response: `{"success": false, "value": {"message": "Unknown address."}}`,
			want:     authflow.ResetOutcome{Accepted: false, Success: false, Message: "Unknown address."},
		},
		{
			name:     "rejected with unparseable body",
			status:   http.StatusInternalServerError,
			response: `<html>oops</html>`,
			want:     authflow.ResetOutcome{Accepted: false},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured capturedRequest
			srv := identityStub(t, tc.status, tc.response, &captured)
			defer srv.Close()

			client := newTestClient(srv.URL)

			outcome, err := client.RequestPasswordReset(context.Background(), "a@b.com")
			require.NoError(t, err, "only a failed round trip is an error")
			assert.Equal(t, tc.want, *outcome)
			assert.Equal(t, "/users/reset-password/request", captured.path)
			assert.Equal(t, map[string]string{"email": "a@b.com"}, captured.body)
		})
	}
}

func TestClientConfirmPasswordReset(t *testing.T) {
	var captured capturedRequest
	srv := identityStub(t, http.StatusOK, `{
		"success": true,
		"value": {"message": "Password updated."}
	}`, &captured)
	defer srv.Close()

	client := newTestClient(srv.URL)

	outcome, err := client.ConfirmPasswordReset(context.Background(), "reset-token", "longenough")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "Password updated.", outcome.Message)

	assert.Equal(t, "/users/reset-password/confirm", captured.path)
	assert.Equal(t, map[string]string{"token": "reset-token", "password": "longenough"}, captured.body)
}

func TestClientResetCallRoundTripFailure(t *testing.T) {
	srv := identityStub(t, http.StatusOK, `{}`, nil)
	srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.RequestPasswordReset(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.True(t, authflow.IsTransportError(err))
}
