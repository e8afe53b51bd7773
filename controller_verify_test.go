package authflow_test

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	authflow "github.com/derbrid/go-authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func verifyTarget(t *testing.T, raw string) *url.URL {
	t.Helper()
	target, err := url.Parse(raw)
	require.NoError(t, err)
	return target
}

func TestVerifierMissingTokenFailsWithoutNetwork(t *testing.T) {
	api := &MockIdentityAPI{}
	store := newTestStore(t)

	verifier := authflow.NewEmailVerifier(api, store, authflow.WithVerifyLogger(testLogger{}))
	defer verifier.Close()

	err := verifier.Run(context.Background(), verifyTarget(t, "/register"))
	require.ErrorIs(t, err, authflow.ErrMissingToken)

	assert.Equal(t, authflow.VerifyError, verifier.State())
	assert.Equal(t, "Missing verification token.", verifier.Status().Text)
	assert.Equal(t, authflow.StatusWarning, verifier.Status().Variant)

	_, stored := store.Get()
	assert.False(t, stored)
	api.AssertNotCalled(t, "ConfirmVerification")
}

func TestVerifierBlankTokenCountsAsMissing(t *testing.T) {
	api := &MockIdentityAPI{}
	store := newTestStore(t)

	verifier := authflow.NewEmailVerifier(api, store, authflow.WithVerifyLogger(testLogger{}))
	defer verifier.Close()

	err := verifier.Run(context.Background(), verifyTarget(t, "/register?token=%20%20"))
	require.ErrorIs(t, err, authflow.ErrMissingToken)
	api.AssertNotCalled(t, "ConfirmVerification")
}

func TestVerifierSuccessStoresTokenBeforeCallback(t *testing.T) {
	api := &MockIdentityAPI{}
	api.On("ConfirmVerification", mock.Anything, "activation-token").
		Return("session-token", nil)

	store := newTestStore(t)

	var tokenAtCallback string
	var callbackFired atomic.Int32
	var navigated atomic.Int32

	verifier := authflow.NewEmailVerifier(api, store,
		authflow.WithVerifyLogger(testLogger{}),
		authflow.WithVerifyRedirectDelay(10*time.Millisecond),
		authflow.WithVerifyNavigate(func(nav authflow.Navigation) {
			assert.Equal(t, authflow.DestinationHome, nav.Destination)
			assert.True(t, nav.Replace)
			navigated.Add(1)
		}),
		authflow.WithOnVerified(func() {
			tokenAtCallback, _ = store.Get()
			callbackFired.Add(1)
		}),
	)
	defer verifier.Close()

	err := verifier.Run(context.Background(), verifyTarget(t, "/register?token=activation-token"))
	require.NoError(t, err)

	assert.Equal(t, authflow.VerifySuccess, verifier.State())
	assert.Equal(t, authflow.StatusSuccess, verifier.Status().Variant)

	require.Equal(t, int32(1), callbackFired.Load())
	assert.Equal(t, "session-token", tokenAtCallback, "session must be live before the callback fires")

	require.Eventually(t, func() bool {
		return navigated.Load() == 1
	}, time.Second, time.Millisecond)
}

func TestVerifierServiceErrorIsTerminal(t *testing.T) {
	api := &MockIdentityAPI{}
	api.On("ConfirmVerification", mock.Anything, "expired").
		Return("", errors.New("410 gone"))

	store := newTestStore(t)

	verifier := authflow.NewEmailVerifier(api, store, authflow.WithVerifyLogger(testLogger{}))
	defer verifier.Close()

	err := verifier.Run(context.Background(), verifyTarget(t, "/register?token=expired"))
	require.Error(t, err)

	assert.Equal(t, authflow.VerifyError, verifier.State())
	assert.Equal(t, "Verification failed. Please request a new link.", verifier.Status().Text)

	_, stored := store.Get()
	assert.False(t, stored)
}

func TestVerifierCloseSuppressesLateEffects(t *testing.T) {
	store := newTestStore(t)

	api := &MockIdentityAPI{}
	release := make(chan struct{})
	api.On("ConfirmVerification", mock.Anything, "slow").
		Run(func(mock.Arguments) { <-release }).
		Return("session-token", nil)

	var callbackFired, navigated atomic.Int32

	verifier := authflow.NewEmailVerifier(api, store,
		authflow.WithVerifyLogger(testLogger{}),
		authflow.WithVerifyRedirectDelay(time.Millisecond),
		authflow.WithOnVerified(func() { callbackFired.Add(1) }),
		authflow.WithVerifyNavigate(func(authflow.Navigation) { navigated.Add(1) }),
	)

	done := make(chan error, 1)
	go func() {
		done <- verifier.Run(context.Background(), verifyTarget(t, "/register?token=slow"))
	}()

	time.Sleep(20 * time.Millisecond)
	verifier.Close()
	close(release)

	require.NoError(t, <-done)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, callbackFired.Load(), "callback must not fire after teardown")
	assert.Zero(t, navigated.Load(), "redirect must not fire after teardown")

	_, stored := store.Get()
	assert.False(t, stored, "store write must not happen after teardown")
}

func TestVerifierCloseBeforeScheduledRedirect(t *testing.T) {
	api := &MockIdentityAPI{}
	api.On("ConfirmVerification", mock.Anything, "ok").
		Return("session-token", nil)

	store := newTestStore(t)

	var navigated atomic.Int32
	verifier := authflow.NewEmailVerifier(api, store,
		authflow.WithVerifyLogger(testLogger{}),
		authflow.WithVerifyRedirectDelay(50*time.Millisecond),
		authflow.WithVerifyNavigate(func(authflow.Navigation) { navigated.Add(1) }),
	)

	require.NoError(t, verifier.Run(context.Background(), verifyTarget(t, "/register?token=ok")))

	// Unmount between the success and the deferred redirect.
	verifier.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, navigated.Load())

	// The store write already happened; teardown does not undo it.
	token, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, "session-token", token)
}

func TestVerifierRunAfterCloseIsRejected(t *testing.T) {
	api := &MockIdentityAPI{}
	store := newTestStore(t)

	verifier := authflow.NewEmailVerifier(api, store, authflow.WithVerifyLogger(testLogger{}))
	verifier.Close()
	verifier.Close() // idempotent

	err := verifier.Run(context.Background(), verifyTarget(t, "/register?token=x"))
	require.ErrorIs(t, err, authflow.ErrControllerClosed)
	api.AssertNotCalled(t, "ConfirmVerification")
}
