package authflow

import (
	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidTransition = "INVALID_FLOW_TRANSITION"

// ErrInvalidTransition is returned when a requested flow state change is
// not allowed.
var ErrInvalidTransition = goerrors.New("invalid flow state transition", goerrors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// FlowState identifies a controller's position in its flow.
type FlowState string

// Login controller states.
const (
	LoginIdle                FlowState = "idle"
	LoginSubmitting          FlowState = "submitting"
	LoginAuthenticated       FlowState = "authenticated"
	LoginPendingVerification FlowState = "pending_verification"
	LoginFailed              FlowState = "failed"
)

// Resend-activation sub-flow states, reachable from LoginPendingVerification.
const (
	ResendIdle    FlowState = "resend_idle"
	ResendSending FlowState = "resend_sending"
	ResendSent    FlowState = "resend_sent"
	ResendFailed  FlowState = "resend_failed"
)

// Email verification states. Both outcomes are terminal.
const (
	VerifyLoading FlowState = "loading"
	VerifySuccess FlowState = "success"
	VerifyError   FlowState = "error"
)

// Password-reset-request states.
const (
	ResetRequestIdle       FlowState = "idle"
	ResetRequestSubmitting FlowState = "submitting"
	ResetRequestLinkSent   FlowState = "link_sent"
	ResetRequestFailed     FlowState = "failed"
)

// Password-reset-confirm states.
const (
	ResetConfirmBlocked    FlowState = "blocked"
	ResetConfirmIdle       FlowState = "idle"
	ResetConfirmSubmitting FlowState = "submitting"
	ResetConfirmSucceeded  FlowState = "succeeded"
	ResetConfirmFailed     FlowState = "failed"
)

// flowMachine enforces a controller's transition table. It is not safe for
// concurrent use on its own; the owning controller serializes access.
type flowMachine struct {
	current     FlowState
	transitions map[FlowState]map[FlowState]struct{}
}

func newFlowMachine(initial FlowState, transitions map[FlowState]map[FlowState]struct{}) *flowMachine {
	return &flowMachine{
		current:     initial,
		transitions: transitions,
	}
}

func (m *flowMachine) Current() FlowState {
	return m.current
}

func (m *flowMachine) canTransition(from, to FlowState) bool {
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// to moves the machine to target or reports the violation.
func (m *flowMachine) to(target FlowState) error {
	if target == "" {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target state is empty",
		})
	}
	if m.current == target {
		return nil
	}
	if !m.canTransition(m.current, target) {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from": m.current,
			"to":   target,
		})
	}
	m.current = target
	return nil
}

func loginTransitions() map[FlowState]map[FlowState]struct{} {
	return map[FlowState]map[FlowState]struct{}{
		LoginIdle: {
			LoginSubmitting: {},
			LoginFailed:     {},
		},
		LoginSubmitting: {
			LoginAuthenticated:       {},
			LoginPendingVerification: {},
			LoginFailed:              {},
		},
		LoginFailed: {
			LoginSubmitting: {},
		},
		LoginPendingVerification: {
			LoginSubmitting: {},
			LoginFailed:     {},
		},
	}
}

func resendTransitions() map[FlowState]map[FlowState]struct{} {
	return map[FlowState]map[FlowState]struct{}{
		ResendIdle: {
			ResendSending: {},
		},
		ResendSending: {
			ResendSent:   {},
			ResendFailed: {},
		},
		ResendSent: {
			ResendSending: {},
		},
		ResendFailed: {
			ResendSending: {},
		},
	}
}

func verifyTransitions() map[FlowState]map[FlowState]struct{} {
	return map[FlowState]map[FlowState]struct{}{
		VerifyLoading: {
			VerifySuccess: {},
			VerifyError:   {},
		},
	}
}

func resetRequestTransitions() map[FlowState]map[FlowState]struct{} {
	return map[FlowState]map[FlowState]struct{}{
		ResetRequestIdle: {
			ResetRequestSubmitting: {},
		},
		ResetRequestSubmitting: {
			ResetRequestLinkSent: {},
			ResetRequestFailed:   {},
		},
		ResetRequestFailed: {
			ResetRequestSubmitting: {},
		},
	}
}

func resetConfirmTransitions() map[FlowState]map[FlowState]struct{} {
	return map[FlowState]map[FlowState]struct{}{
		ResetConfirmIdle: {
			ResetConfirmSubmitting: {},
		},
		ResetConfirmSubmitting: {
			ResetConfirmSucceeded: {},
			ResetConfirmFailed:    {},
		},
		ResetConfirmFailed: {
			ResetConfirmSubmitting: {},
		},
	}
}
