package authflow

import (
	"context"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

const (
	msgLoginFailed         = "Incorrect email or password."
	msgLoginPendingVerify  = "Your email address has not been verified yet. Resend the activation email to continue."
	msgLoginSignedIn       = "Signed in. Redirecting you now..."
	msgActivationSent      = "Verification email sent. Check your inbox."
	msgActivationSendError = "Could not send the verification email. Please try again later."
	msgSessionWriteFailed  = "Could not persist your session. Please try again."
)

// LoginControllerOption customizes the login controller.
type LoginControllerOption func(*LoginController)

// WithLoginLogger overrides the controller logger.
func WithLoginLogger(logger Logger) LoginControllerOption {
	return func(c *LoginController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLoginActivitySink sets the sink receiving login flow events.
func WithLoginActivitySink(sink ActivitySink) LoginControllerOption {
	return func(c *LoginController) {
		c.activity = normalizeActivitySink(sink)
	}
}

// LoginController drives the credential login flow:
// idle -> submitting -> {authenticated | pending_verification | failed}.
// From pending_verification the resend-activation sub-flow re-posts the
// retained credentials without changing the outer state. A submission in
// flight is non-reentrant; the session token is only persisted for
// verified accounts.
type LoginController struct {
	mu       sync.Mutex
	api      IdentityAPI
	sessions *SessionStore
	flow     *flowMachine
	resend   *flowMachine
	form     LoginForm
	status   *StatusMessage
	logger   Logger
	activity ActivitySink
}

// NewLoginController wires the login flow to the identity service and the
// shared session store.
func NewLoginController(api IdentityAPI, sessions *SessionStore, opts ...LoginControllerOption) *LoginController {
	c := &LoginController{
		api:      api,
		sessions: sessions,
		flow:     newFlowMachine(LoginIdle, loginTransitions()),
		resend:   newFlowMachine(ResendIdle, resendTransitions()),
		logger:   defLogger{},
		activity: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// SetCredentials updates the controller's form. Credentials are retained
// only for the duration of the flow (resend re-posts them).
func (c *LoginController) SetCredentials(email, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = LoginForm{Email: email, Password: password}
}

// State returns the current outer flow state.
func (c *LoginController) State() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow.Current()
}

// ResendState returns the resend-activation sub-flow state.
func (c *LoginController) ResendState() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resend.Current()
}

// Status returns the latest presentational message, if any.
func (c *LoginController) Status() (StatusMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return StatusMessage{}, false
	}
	return *c.status, true
}

// Submit validates the retained credentials and logs in. Empty fields
// fail synchronously without a network call. On success the returned
// navigation advances the shell to the home destination.
func (c *LoginController) Submit(ctx context.Context) (Navigation, error) {
	c.mu.Lock()
	if c.flow.Current() == LoginSubmitting {
		c.mu.Unlock()
		return Navigation{}, ErrSubmissionInFlight
	}

	form := LoginForm{
		Email:    strings.TrimSpace(c.form.Email),
		Password: c.form.Password,
	}

	if err := form.Validate(); err != nil {
		c.failLocked(statusFromValidation(err))
		c.mu.Unlock()
		return Navigation{}, goerrors.Wrap(err, goerrors.CategoryValidation, "login credentials are incomplete")
	}

	if err := c.flow.to(LoginSubmitting); err != nil {
		c.mu.Unlock()
		return Navigation{}, err
	}
	c.status = nil
	c.mu.Unlock()

	result, err := c.api.Login(ctx, form)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Error("login request error: %v", err)
		c.failLocked(StatusMessage{Text: msgLoginFailed, Variant: StatusWarning})
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Email:     form.Email,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return Navigation{}, nil
	}

	// The service must echo the account we asked about; anything else is
	// folded into the generic failure to avoid leaking account state.
	if !strings.EqualFold(strings.TrimSpace(result.User.Email), form.Email) {
		c.logger.Error("login response email mismatch")
		c.failLocked(StatusMessage{Text: msgLoginFailed, Variant: StatusWarning})
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Email:     form.Email,
			Metadata:  map[string]any{"error": ErrEmailMismatch.Error()},
		})
		return Navigation{}, nil
	}

	if !result.User.EmailVerified {
		// An unverified account must not gain a live session; the token
		// is withheld.
		if err := c.flow.to(LoginPendingVerification); err != nil {
			return Navigation{}, err
		}
		c.resend = newFlowMachine(ResendIdle, resendTransitions())
		c.status = &StatusMessage{Text: msgLoginPendingVerify, Variant: StatusNeutral}
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventLoginPendingVerify,
			Email:     form.Email,
		})
		return Navigation{}, nil
	}

	if err := c.sessions.Set(result.Token); err != nil {
		c.logger.Error("session write error: %v", err)
		c.failLocked(StatusMessage{Text: msgSessionWriteFailed, Variant: StatusWarning})
		return Navigation{}, err
	}

	if err := c.flow.to(LoginAuthenticated); err != nil {
		return Navigation{}, err
	}
	c.status = &StatusMessage{Text: msgLoginSignedIn, Variant: StatusSuccess}
	recordActivity(ctx, c.activity, c.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Email:     form.Email,
	})

	return NavigateTo(DestinationHome), nil
}

// ResendActivation re-posts the retained credentials to the activation
// request endpoint. Only available from pending_verification; the outcome
// changes the status message, never the outer state. There is no client
// side rate limit.
func (c *LoginController) ResendActivation(ctx context.Context) error {
	c.mu.Lock()
	if c.flow.Current() != LoginPendingVerification {
		c.mu.Unlock()
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from":   c.flow.Current(),
			"reason": "resend is only available while verification is pending",
		})
	}
	if c.resend.Current() == ResendSending {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	if err := c.resend.to(ResendSending); err != nil {
		c.mu.Unlock()
		return err
	}
	form := c.form
	c.mu.Unlock()

	err := c.api.RequestActivation(ctx, form)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Warn("activation resend error: %v", err)
		if terr := c.resend.to(ResendFailed); terr != nil {
			return terr
		}
		c.status = &StatusMessage{Text: msgActivationSendError, Variant: StatusWarning}
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventActivationResendError,
			Email:     form.Email,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return nil
	}

	if terr := c.resend.to(ResendSent); terr != nil {
		return terr
	}
	c.status = &StatusMessage{Text: msgActivationSent, Variant: StatusNeutral}
	recordActivity(ctx, c.activity, c.logger, ActivityEvent{
		EventType: ActivityEventActivationResent,
		Email:     form.Email,
	})

	return nil
}

// RequestState derives the request lifecycle from the flow state.
func (c *LoginController) RequestState() RequestState {
	switch c.State() {
	case LoginSubmitting:
		return RequestLoading
	case LoginAuthenticated:
		return RequestSuccess
	case LoginFailed:
		return RequestError
	default:
		return RequestIdle
	}
}

func (c *LoginController) failLocked(status StatusMessage) {
	if err := c.flow.to(LoginFailed); err != nil {
		c.logger.Error("login state error: %v", err)
	}
	c.status = &status
}

// statusFromValidation converts the first failing validation rule into a
// warning-variant message.
func statusFromValidation(err error) StatusMessage {
	return StatusMessage{
		Text:    firstValidationMessage(err, "email", "password"),
		Variant: StatusWarning,
	}
}
