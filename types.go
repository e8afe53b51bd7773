package authflow

import (
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// RequestState tracks the lifecycle of a controller's network operation.
type RequestState string

const (
	RequestIdle    RequestState = "idle"
	RequestLoading RequestState = "loading"
	RequestSuccess RequestState = "success"
	RequestError   RequestState = "error"
)

// StatusVariant classifies a StatusMessage for presentation.
type StatusVariant string

const (
	StatusNeutral StatusVariant = "neutral"
	StatusWarning StatusVariant = "warning"
	StatusSuccess StatusVariant = "success"
)

// StatusMessage is the presentational outcome of the latest operation.
type StatusMessage struct {
	Text    string        `json:"text"`
	Variant StatusVariant `json:"variant"`
}

// Config holds client options
type Config interface {
	GetBaseURL() string
	GetStorageDir() string
	GetSessionKey() string
	GetRequestTimeout() time.Duration
	GetResetRequestCountdown() int
	GetResetConfirmCountdown() int
	GetVerifyRedirectDelay() time.Duration
}

// SimpleConfig is a plain struct Config implementation. Zero fields fall
// back to the defaults the identity service is deployed with.
type SimpleConfig struct {
	BaseURL               string
	StorageDir            string
	SessionKey            string
	RequestTimeout        time.Duration
	ResetRequestCountdown int
	ResetConfirmCountdown int
	VerifyRedirectDelay   time.Duration
}

func (c SimpleConfig) GetBaseURL() string {
	if c.BaseURL == "" {
		return "http://localhost:4000"
	}
	return c.BaseURL
}

func (c SimpleConfig) GetStorageDir() string {
	return c.StorageDir
}

func (c SimpleConfig) GetSessionKey() string {
	if c.SessionKey == "" {
		return SessionKeyName
	}
	return c.SessionKey
}

func (c SimpleConfig) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return c.RequestTimeout
}

func (c SimpleConfig) GetResetRequestCountdown() int {
	if c.ResetRequestCountdown <= 0 {
		return 5
	}
	return c.ResetRequestCountdown
}

func (c SimpleConfig) GetResetConfirmCountdown() int {
	if c.ResetConfirmCountdown <= 0 {
		return 1
	}
	return c.ResetConfirmCountdown
}

func (c SimpleConfig) GetVerifyRedirectDelay() time.Duration {
	if c.VerifyRedirectDelay <= 0 {
		return 900 * time.Millisecond
	}
	return c.VerifyRedirectDelay
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHFLOW "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
