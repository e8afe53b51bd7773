package authflow

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrSubmissionInFlight is returned when a controller is asked to submit
// while a previous submission has not settled.
var ErrSubmissionInFlight = errors.New("submission already in flight")

// ErrMissingToken is the error for flows activated without a token in the
// navigation target.
var ErrMissingToken = errors.New("missing token")

// ErrStorageUnavailable wraps failures to persist the session token.
var ErrStorageUnavailable = errors.New("session storage unavailable")

// ErrControllerClosed is returned when operating on a torn-down controller.
var ErrControllerClosed = errors.New("controller is closed")

const (
	textCodeEmailMismatch   = "RESPONSE_EMAIL_MISMATCH"
	textCodeMalformedReply  = "MALFORMED_SERVICE_REPLY"
	textCodeTransportFailed = "TRANSPORT_FAILURE"
)

// ErrEmailMismatch is returned when the service echoes back an account
// whose email does not match the submitted one.
var ErrEmailMismatch = goerrors.New("returned account email does not match submitted email", goerrors.CategoryValidation).
	WithTextCode(textCodeEmailMismatch)

// ErrMalformedReply is returned when a success envelope is missing a
// required field (e.g. success:true without a token).
var ErrMalformedReply = goerrors.New("service reply is missing required fields", goerrors.CategoryValidation).
	WithTextCode(textCodeMalformedReply)

// transportError wraps a failed round trip or a non-2xx response.
func transportError(err error, msg string) *goerrors.Error {
	if err == nil {
		return goerrors.New(msg, goerrors.CategoryOperation).
			WithTextCode(textCodeTransportFailed)
	}
	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode(textCodeTransportFailed)
}

// IsTransportError reports whether err came from the transport layer
// rather than from local validation or a consistency check.
func IsTransportError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCodeTransportFailed
}
