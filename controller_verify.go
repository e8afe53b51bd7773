package authflow

import (
	"context"
	"net/url"
	"sync"
	"time"
)

const (
	msgVerifying          = "Verifying your email..."
	msgVerifyMissingToken = "Missing verification token."
	msgVerifySuccess      = "Verification successful. Redirecting you now..."
	msgVerifyFailed       = "Verification failed. Please request a new link."
)

// EmailVerifierOption customizes the verification controller.
type EmailVerifierOption func(*EmailVerifier)

// WithVerifyLogger overrides the controller logger.
func WithVerifyLogger(logger Logger) EmailVerifierOption {
	return func(v *EmailVerifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithVerifyActivitySink sets the sink receiving verification events.
func WithVerifyActivitySink(sink ActivitySink) EmailVerifierOption {
	return func(v *EmailVerifier) {
		v.activity = normalizeActivitySink(sink)
	}
}

// WithVerifyRedirectDelay overrides the pause between a successful
// verification and the home redirect.
func WithVerifyRedirectDelay(d time.Duration) EmailVerifierOption {
	return func(v *EmailVerifier) {
		if d > 0 {
			v.delay = d
		}
	}
}

// WithVerifyNavigate sets the sink the deferred redirect is delivered to.
func WithVerifyNavigate(fn func(Navigation)) EmailVerifierOption {
	return func(v *EmailVerifier) {
		v.navigate = fn
	}
}

// WithOnVerified sets the callback invoked once the session is
// established. The token is persisted before this fires, so the session
// is live at the moment the caller is notified.
func WithOnVerified(fn func()) EmailVerifierOption {
	return func(v *EmailVerifier) {
		v.onVerified = fn
	}
}

// EmailVerifier consumes a verification token from the incoming
// navigation target and confirms it with the identity service:
// loading -> {success | error}, terminal either way. A missing token is a
// first-class error state reached without touching the network. Teardown
// before the request settles suppresses every late effect: the store
// write, the callback, and the scheduled redirect.
type EmailVerifier struct {
	mu         sync.Mutex
	api        IdentityAPI
	sessions   *SessionStore
	flow       *flowMachine
	status     StatusMessage
	delay      time.Duration
	onVerified func()
	navigate   func(Navigation)
	cancel     context.CancelFunc
	redirect   *time.Timer
	closed     bool
	logger     Logger
	activity   ActivitySink
}

// NewEmailVerifier wires the verification flow to the identity service
// and the shared session store.
func NewEmailVerifier(api IdentityAPI, sessions *SessionStore, opts ...EmailVerifierOption) *EmailVerifier {
	v := &EmailVerifier{
		api:      api,
		sessions: sessions,
		flow:     newFlowMachine(VerifyLoading, verifyTransitions()),
		status:   StatusMessage{Text: msgVerifying, Variant: StatusNeutral},
		delay:    900 * time.Millisecond,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	return v
}

// State returns the current flow state.
func (v *EmailVerifier) State() FlowState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.flow.Current()
}

// Status returns the latest presentational message.
func (v *EmailVerifier) Status() StatusMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Run activates the controller against the incoming navigation target.
// It returns once the flow reaches a terminal state; the home redirect,
// when scheduled, fires asynchronously after the configured delay.
func (v *EmailVerifier) Run(ctx context.Context, target *url.URL) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrControllerClosed
	}

	token := TokenFromTarget(target)
	if token == "" {
		v.errorLocked(StatusMessage{Text: msgVerifyMissingToken, Variant: StatusWarning})
		v.mu.Unlock()
		recordActivity(ctx, v.activity, v.logger, ActivityEvent{
			EventType: ActivityEventVerificationFailure,
			Metadata:  map[string]any{"error": ErrMissingToken.Error()},
		})
		return ErrMissingToken
	}

	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()
	defer cancel()

	sessionToken, err := v.api.ConfirmVerification(ctx, token)

	v.mu.Lock()
	if v.closed {
		// Torn down mid-flight; the response must have no observable
		// effect.
		v.mu.Unlock()
		return nil
	}

	if err != nil {
		v.logger.Error("verification request error: %v", err)
		v.errorLocked(StatusMessage{Text: msgVerifyFailed, Variant: StatusWarning})
		v.mu.Unlock()
		recordActivity(ctx, v.activity, v.logger, ActivityEvent{
			EventType: ActivityEventVerificationFailure,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return err
	}

	// The session must be live before the caller hears about it.
	if err := v.sessions.Set(sessionToken); err != nil {
		v.logger.Error("session write error: %v", err)
		v.errorLocked(StatusMessage{Text: msgVerifyFailed, Variant: StatusWarning})
		v.mu.Unlock()
		return err
	}

	if err := v.flow.to(VerifySuccess); err != nil {
		v.mu.Unlock()
		return err
	}
	v.status = StatusMessage{Text: msgVerifySuccess, Variant: StatusSuccess}
	onVerified := v.onVerified
	v.redirect = time.AfterFunc(v.delay, v.fireRedirect)
	v.mu.Unlock()

	recordActivity(ctx, v.activity, v.logger, ActivityEvent{
		EventType: ActivityEventVerificationSuccess,
	})

	if onVerified != nil {
		onVerified()
	}

	return nil
}

// Close tears the controller down, cancelling the in-flight request and
// any pending redirect. Safe to call more than once.
func (v *EmailVerifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	if v.redirect != nil {
		v.redirect.Stop()
		v.redirect = nil
	}
}

func (v *EmailVerifier) fireRedirect() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.redirect = nil
	navigate := v.navigate
	v.mu.Unlock()

	if navigate != nil {
		navigate(NavigateTo(DestinationHome))
	}
}

func (v *EmailVerifier) errorLocked(status StatusMessage) {
	if err := v.flow.to(VerifyError); err != nil {
		v.logger.Error("verification state error: %v", err)
	}
	v.status = status
}
