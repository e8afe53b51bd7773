package authflow

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess          ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure          ActivityEventType = "auth.login.failure"
	ActivityEventLoginPendingVerify    ActivityEventType = "auth.login.pending_verification"
	ActivityEventActivationResent      ActivityEventType = "auth.activation.resent"
	ActivityEventActivationResendError ActivityEventType = "auth.activation.resend_failure"
	ActivityEventVerificationSuccess   ActivityEventType = "auth.verification.success"
	ActivityEventVerificationFailure   ActivityEventType = "auth.verification.failure"
	ActivityEventResetRequested        ActivityEventType = "auth.password.reset_requested"
	ActivityEventResetRequestFailure   ActivityEventType = "auth.password.reset_request_failure"
	ActivityEventResetSuccess          ActivityEventType = "auth.password.reset"
	ActivityEventResetFailure          ActivityEventType = "auth.password.reset_failure"
	ActivityEventSessionCleared        ActivityEventType = "auth.session.cleared"
)

// ActivityEvent captures audit-friendly information about a flow outcome.
type ActivityEvent struct {
	EventType  ActivityEventType
	Email      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// recordActivity normalizes and forwards an event, logging sink failures.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		if logger == nil {
			logger = defLogger{}
		}
		logger.Warn("activity sink record error: %v", err)
	}
}
