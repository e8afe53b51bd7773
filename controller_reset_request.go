package authflow

import (
	"context"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

const (
	msgResetLinkSentDefault = "Password reset instructions have been sent if the email exists."
	msgResetRequestFailed   = "The request failed. Please try again later."
)

// ResetRequestControllerOption customizes the reset-request controller.
type ResetRequestControllerOption func(*ResetRequestController)

// WithResetRequestLogger overrides the controller logger.
func WithResetRequestLogger(logger Logger) ResetRequestControllerOption {
	return func(c *ResetRequestController) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithResetRequestActivitySink sets the sink receiving reset events.
func WithResetRequestActivitySink(sink ActivitySink) ResetRequestControllerOption {
	return func(c *ResetRequestController) {
		c.activity = normalizeActivitySink(sink)
	}
}

// WithResetRequestNavigate sets the sink the post-countdown redirect is
// delivered to.
func WithResetRequestNavigate(fn func(Navigation)) ResetRequestControllerOption {
	return func(c *ResetRequestController) {
		c.navigate = fn
	}
}

// WithResetRequestCountdown overrides the redirect countdown length and,
// optionally, the countdown construction (tick interval in tests).
func WithResetRequestCountdown(seconds int, opts ...CountdownOption) ResetRequestControllerOption {
	return func(c *ResetRequestController) {
		if seconds > 0 {
			c.seconds = seconds
		}
		if len(opts) > 0 {
			c.countdown = NewCountdown(opts...)
		}
	}
}

// ResetRequestController asks the identity service to mail a reset link:
// idle -> submitting -> {link_sent | failed}. Success wording is generic
// regardless of whether the address is registered, and the submit
// affordance goes away once a link has been sent; that is a UX guard
// against duplicate requests, not an idempotency guarantee.
type ResetRequestController struct {
	mu        sync.Mutex
	api       IdentityAPI
	flow      *flowMachine
	form      ResetRequestForm
	status    *StatusMessage
	countdown *Countdown
	seconds   int
	navigate  func(Navigation)
	logger    Logger
	activity  ActivitySink
}

// NewResetRequestController wires the reset-request flow to the identity
// service.
func NewResetRequestController(api IdentityAPI, opts ...ResetRequestControllerOption) *ResetRequestController {
	c := &ResetRequestController{
		api:       api,
		flow:      newFlowMachine(ResetRequestIdle, resetRequestTransitions()),
		countdown: NewCountdown(),
		seconds:   5,
		logger:    defLogger{},
		activity:  noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// SetEmail updates the form.
func (c *ResetRequestController) SetEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form.Email = email
}

// State returns the current flow state.
func (c *ResetRequestController) State() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow.Current()
}

// Status returns the latest presentational message, if any.
func (c *ResetRequestController) Status() (StatusMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return StatusMessage{}, false
	}
	return *c.status, true
}

// CanSubmit reports whether the submit affordance should be offered.
func (c *ResetRequestController) CanSubmit() bool {
	switch c.State() {
	case ResetRequestSubmitting, ResetRequestLinkSent:
		return false
	default:
		return true
	}
}

// Countdown returns the redirect countdown's seconds remaining, if one is
// running.
func (c *ResetRequestController) Countdown() (int, bool) {
	return c.countdown.Remaining()
}

// Submit validates the email and requests a reset link. An empty email is
// rejected locally as a warning without a network call.
func (c *ResetRequestController) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch c.flow.Current() {
	case ResetRequestSubmitting:
		c.mu.Unlock()
		return ErrSubmissionInFlight
	case ResetRequestLinkSent:
		c.mu.Unlock()
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "a reset link was already sent",
		})
	}

	form := ResetRequestForm{Email: strings.TrimSpace(c.form.Email)}
	if err := form.Validate(); err != nil {
		c.status = &StatusMessage{
			Text:    firstValidationMessage(err, "email"),
			Variant: StatusWarning,
		}
		c.mu.Unlock()
		return goerrors.Wrap(err, goerrors.CategoryValidation, "reset request email is missing")
	}

	if err := c.flow.to(ResetRequestSubmitting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.status = nil
	c.countdown.Cancel()
	c.mu.Unlock()

	outcome, err := c.api.RequestPasswordReset(ctx, form.Email)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Error("reset request error: %v", err)
		c.failLocked(StatusMessage{Text: msgResetRequestFailed, Variant: StatusWarning})
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventResetRequestFailure,
			Email:     form.Email,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return nil
	}

	if !outcome.Accepted {
		c.failLocked(StatusMessage{
			Text:    messageOrDefault(outcome.Message, msgResetRequestFailed),
			Variant: StatusWarning,
		})
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventResetRequestFailure,
			Email:     form.Email,
		})
		return nil
	}

	if !outcome.Success {
		c.failLocked(StatusMessage{
			Text:    messageOrDefault(outcome.Message, msgResetLinkSentDefault),
			Variant: StatusWarning,
		})
		recordActivity(ctx, c.activity, c.logger, ActivityEvent{
			EventType: ActivityEventResetRequestFailure,
			Email:     form.Email,
		})
		return nil
	}

	if err := c.flow.to(ResetRequestLinkSent); err != nil {
		return err
	}
	c.status = &StatusMessage{
		Text:    messageOrDefault(outcome.Message, msgResetLinkSentDefault),
		Variant: StatusSuccess,
	}
	recordActivity(ctx, c.activity, c.logger, ActivityEvent{
		EventType: ActivityEventResetRequested,
		Email:     form.Email,
	})

	navigate := c.navigate
	c.countdown.Start(c.seconds, func() {
		if navigate != nil {
			navigate(NavigateTo(DestinationHome))
		}
	})

	return nil
}

// Close cancels the pending redirect countdown.
func (c *ResetRequestController) Close() {
	c.countdown.Cancel()
}

func (c *ResetRequestController) failLocked(status StatusMessage) {
	if err := c.flow.to(ResetRequestFailed); err != nil {
		c.logger.Error("reset request state error: %v", err)
	}
	c.status = &status
}

// messageOrDefault prefers verbatim service text over the fallback.
func messageOrDefault(message, fallback string) string {
	if strings.TrimSpace(message) != "" {
		return message
	}
	return fallback
}
