package authflow_test

import (
	"context"

	authflow "github.com/derbrid/go-authflow"
	"github.com/stretchr/testify/mock"
)

// MockIdentityAPI implements authflow.IdentityAPI
type MockIdentityAPI struct {
	mock.Mock
}

func (m *MockIdentityAPI) Login(ctx context.Context, creds authflow.LoginForm) (*authflow.LoginResult, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authflow.LoginResult), args.Error(1)
}

func (m *MockIdentityAPI) RequestActivation(ctx context.Context, creds authflow.LoginForm) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

func (m *MockIdentityAPI) ConfirmVerification(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityAPI) RequestPasswordReset(ctx context.Context, email string) (*authflow.ResetOutcome, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authflow.ResetOutcome), args.Error(1)
}

func (m *MockIdentityAPI) ConfirmPasswordReset(ctx context.Context, token, password string) (*authflow.ResetOutcome, error) {
	args := m.Called(ctx, token, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authflow.ResetOutcome), args.Error(1)
}

// MockActivitySink implements authflow.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event authflow.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
