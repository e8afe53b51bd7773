package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Identity service endpoints. Tokens travel in the JSON body, never in the
// URL.
const (
	routeLogin             = "/users/login"
	routeActivationRequest = "/users/register/request"
	routeVerifyEmail       = "/users/register"
	routeResetRequest      = "/users/reset-password/request"
	routeResetConfirm      = "/users/reset-password/confirm"
)

// Account is the user record echoed back by a successful login.
type Account struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// LoginResult is the application-level payload of a successful login.
type LoginResult struct {
	User  Account `json:"user"`
	Token string  `json:"token"`
}

// ResetOutcome reports a password-reset endpoint response. The reset
// endpoints surface service-supplied text even on failure, so only a
// failed round trip is an error; everything else lands here.
type ResetOutcome struct {
	Accepted bool   `json:"accepted"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// IdentityAPI is the request/response contract of the remote identity
// service consumed by the flow controllers.
type IdentityAPI interface {
	Login(ctx context.Context, creds LoginForm) (*LoginResult, error)
	RequestActivation(ctx context.Context, creds LoginForm) error
	ConfirmVerification(ctx context.Context, token string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) (*ResetOutcome, error)
	ConfirmPasswordReset(ctx context.Context, token, password string) (*ResetOutcome, error)
}

// envelope is the identity service's JSON response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Value   json.RawMessage `json:"value"`
}

// ClientOption customizes the HTTP client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClientLogger overrides the logger.
func WithClientLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client implements IdentityAPI over JSON/HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  Logger
}

var _ IdentityAPI = (*Client)(nil)

// NewClient returns a Client for the configured identity service.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.GetBaseURL(), "/"),
		http:    &http.Client{Timeout: cfg.GetRequestTimeout()},
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

func (c *Client) Login(ctx context.Context, creds LoginForm) (*LoginResult, error) {
	status, body, err := c.post(ctx, routeLogin, map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, transportError(nil, "login request rejected").
			WithMetadata(map[string]any{"status": status})
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, transportError(err, "login response did not parse")
	}
	if !env.Success {
		return nil, transportError(nil, "login was not accepted")
	}

	var result LoginResult
	if err := json.Unmarshal(env.Value, &result); err != nil {
		return nil, transportError(err, "login payload did not parse")
	}
	if result.Token == "" || result.User.Email == "" {
		return nil, ErrMalformedReply
	}

	return &result, nil
}

func (c *Client) RequestActivation(ctx context.Context, creds LoginForm) error {
	status, body, err := c.post(ctx, routeActivationRequest, map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return transportError(nil, "activation request rejected").
			WithMetadata(map[string]any{"status": status})
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return transportError(err, "activation response did not parse")
	}
	if !env.Success {
		return transportError(nil, "activation request was not accepted")
	}

	return nil
}

func (c *Client) ConfirmVerification(ctx context.Context, token string) (string, error) {
	status, body, err := c.post(ctx, routeVerifyEmail, map[string]string{
		"token": token,
	})
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", transportError(nil, "verification request rejected").
			WithMetadata(map[string]any{"status": status})
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", transportError(err, "verification response did not parse")
	}
	if !env.Success {
		return "", transportError(nil, "verification was not accepted")
	}

	var value struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Value, &value); err != nil {
		return "", transportError(err, "verification payload did not parse")
	}
	if value.Token == "" {
		return "", ErrMalformedReply
	}

	return value.Token, nil
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) (*ResetOutcome, error) {
	return c.resetCall(ctx, routeResetRequest, map[string]string{
		"email": email,
	})
}

func (c *Client) ConfirmPasswordReset(ctx context.Context, token, password string) (*ResetOutcome, error) {
	return c.resetCall(ctx, routeResetConfirm, map[string]string{
		"token":    token,
		"password": password,
	})
}

func (c *Client) resetCall(ctx context.Context, path string, payload map[string]string) (*ResetOutcome, error) {
	status, body, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}

	outcome := &ResetOutcome{
		Accepted: status >= 200 && status < 300,
	}

	// The service replies with an envelope even on rejected requests; a
	// body that does not parse simply leaves the defaults in place.
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		outcome.Success = outcome.Accepted && env.Success

		var value struct {
			Message string `json:"message"`
		}
		if len(env.Value) > 0 {
			if err := json.Unmarshal(env.Value, &value); err == nil {
				outcome.Message = value.Message
			}
		}
	}

	return outcome, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not encode request payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not build request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, transportError(err, "identity service request failed")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, transportError(err, "identity service response could not be read")
	}

	c.logger.Debug("identity call %s status=%d", path, res.StatusCode)

	return res.StatusCode, body, nil
}
