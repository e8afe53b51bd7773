package authflow

import (
	"context"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

const (
	msgResetLinkInvalid      = "This reset link is invalid or has expired. Request a new reset email."
	msgResetConfirmFailed    = "Could not reset your password. Please try again later."
	msgResetConfirmSucceeded = "Your password has been reset. Sign in with your new password."
)

// ResetConfirmControllerOption customizes the reset-confirm controller.
type ResetConfirmControllerOption func(*ResetConfirmController)

// WithResetConfirmLogger overrides the controller logger.
func WithResetConfirmLogger(logger Logger) ResetConfirmControllerOption {
	return func(c *ResetConfirmController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithResetConfirmActivitySink sets the sink receiving reset events.
func WithResetConfirmActivitySink(sink ActivitySink) ResetConfirmControllerOption {
	return func(c *ResetConfirmController) {
		c.activity = normalizeActivitySink(sink)
	}
}

// WithResetConfirmNavigate sets the sink the post-countdown redirect is
// delivered to.
func WithResetConfirmNavigate(fn func(Navigation)) ResetConfirmControllerOption {
	return func(c *ResetConfirmController) {
		c.navigate = fn
	}
}

// WithResetConfirmCountdown overrides the redirect countdown length and,
// optionally, the countdown construction (tick interval in tests).
func WithResetConfirmCountdown(seconds int, opts ...CountdownOption) ResetConfirmControllerOption {
	return func(c *ResetConfirmController) {
		if seconds > 0 {
			c.seconds = seconds
		}
		if len(opts) > 0 {
			c.countdown = NewCountdown(opts...)
		}
	}
}

// ResetConfirmController submits a new password against a reset token
// taken from the incoming navigation target:
// blocked (no token) | idle -> submitting -> {succeeded | failed}.
// Without a token the controller is blocked from construction on: inputs
// are disabled, a warning is shown, and Submit never reaches the network.
type ResetConfirmController struct {
	mu        sync.Mutex
	api       IdentityAPI
	token     string
	flow      *flowMachine
	form      ResetConfirmForm
	status    *StatusMessage
	countdown *Countdown
	seconds   int
	navigate  func(Navigation)
	logger    Logger
	activity  ActivitySink
}

// NewResetConfirmController wires the reset-confirm flow for the token
// extracted from the activation target (see TokenFromTarget). An empty
// token yields a blocked controller.
func NewResetConfirmController(api IdentityAPI, token string, opts ...ResetConfirmControllerOption) *ResetConfirmController {
	token = strings.TrimSpace(token)

	initial := ResetConfirmIdle
	c := &ResetConfirmController{
		api:       api,
		token:     token,
		countdown: NewCountdown(),
		seconds:   1,
		logger:    defLogger{},
		activity:  noopActivitySink{},
	}

	if token == "" {
		initial = ResetConfirmBlocked
		c.status = &StatusMessage{Text: msgResetLinkInvalid, Variant: StatusWarning}
	}
	c.flow = newFlowMachine(initial, resetConfirmTransitions())

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// SetPassword updates the new-password field.
func (c *ResetConfirmController) SetPassword(password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.Password = password
}

// SetConfirmPassword updates the confirmation field.
func (c *ResetConfirmController) SetConfirmPassword(password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.ConfirmPassword = password
}

// State returns the current flow state.
func (c *ResetConfirmController) State() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow.Current()
}

// Status returns the latest presentational message, if any.
func (c *ResetConfirmController) Status() (StatusMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return StatusMessage{}, false
	}
	return *c.status, true
}

// InputsEnabled reports whether the password inputs should accept input.
func (c *ResetConfirmController) InputsEnabled() bool {
	switch c.State() {
	case ResetConfirmBlocked, ResetConfirmSubmitting, ResetConfirmSucceeded:
		return false
	default:
		return true
	}
}

// Countdown returns the redirect countdown's seconds remaining, if one is
// running.
func (c *ResetConfirmController) Countdown() (int, bool) {
	return c.countdown.Remaining()
}

// Submit validates the password pair and confirms the reset. Validation
// is ordered (required, then length, then match) and the first failing
// rule stops the submission before any network call. In the blocked state
// Submit is a no-op.
func (c *ResetConfirmController) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch c.flow.Current() {
	case ResetConfirmBlocked:
		c.mu.Unlock()
		return ErrMissingToken
	case ResetConfirmSubmitting:
		c.mu.Unlock()
		return ErrSubmissionInFlight
	case ResetConfirmSucceeded:
		c.mu.Unlock()
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "password was already reset",
		})
	}

	form := c.form
	if err := form.Validate(); err != nil {
		c.status = &StatusMessage{Text: err.Error(), Variant: StatusWarning}
		c.mu.Unlock()
		return goerrors.Wrap(err, goerrors.CategoryValidation, "new password failed validation")
	}

	if err := c.flow.to(ResetConfirmSubmitting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.status = nil
	c.countdown.Cancel()
	password := strings.TrimSpace(form.Password)
	token := c.token
	c.mu.Unlock()

	outcome, err := c.api.ConfirmPasswordReset(ctx, token, password)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Error("reset confirm error: %v", err)
		c.failLocked(StatusMessage{Text: msgResetConfirmFailed, Variant: StatusWarning})
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventResetFailure,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return nil
	}

	if !outcome.Accepted {
		c.failLocked(StatusMessage{
			Text:    messageOrDefault(outcome.Message, msgResetConfirmFailed),
			Variant: StatusWarning,
		})
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventResetFailure,
		})
		return nil
	}

	if !outcome.Success {
		c.failLocked(StatusMessage{
			Text:    messageOrDefault(outcome.Message, msgResetConfirmSucceeded),
			Variant: StatusWarning,
		})
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventResetFailure,
		})
		return nil
	}

	if err := c.flow.to(ResetConfirmSucceeded); err != nil {
		return err
	}
	// Spent credentials have no business staying in memory.
	c.form = ResetConfirmForm{}
	c.status = &StatusMessage{
		Text:    messageOrDefault(outcome.Message, msgResetConfirmSucceeded),
		Variant: StatusSuccess,
	}
	recordActivity(ctx, c.activity, c.logger, ActivityEvent{
		EventType: ActivityEventResetSuccess,
	})

	navigate := c.navigate
	c.countdown.Start(c.seconds, func() {
		if navigate != nil {
			navigate(NavigateTo(DestinationLogin))
		}
	})

	return nil
}

// Close cancels the pending redirect countdown.
func (c *ResetConfirmController) Close() {
	c.countdown.Cancel()
}

func (c *ResetConfirmController) failLocked(status StatusMessage) {
	if err := c.flow.to(ResetConfirmFailed); err != nil {
		c.logger.Error("reset confirm state error: %v", err)
	}
	c.status = &status
}
