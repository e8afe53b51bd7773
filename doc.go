// Package authflow implements the client side of the derbrid identity
// service: credential login with an unverified-account branch, email
// verification by token, and the two-step password reset flow.
//
// Controllers:
//   - Each flow is driven by a controller (LoginController, EmailVerifier,
//     ResetRequestController, ResetConfirmController) that owns its form
//     state, serializes its own submissions, and walks an explicit
//     transition table. Controllers never navigate on their own; they
//     return or emit Navigation values the calling shell interprets.
//
// Session state:
//   - SessionStore persists the opaque session token under a fixed key in
//     a storage directory. Another process changing the stored value is
//     observed through Subscribe; local writes never echo back to the
//     writing instance.
//
// Deferred work:
//   - Countdown drives the redirect-after-success pattern shared by the
//     reset flows. Every countdown and in-flight request is cancellable so
//     a torn-down controller can never navigate a stale shell.
//
// Activity sinks:
//   - ActivitySink receives an ActivityEvent for every flow outcome. Sinks
//     run best-effort (errors are logged) so telemetry never blocks a
//     submission.
package authflow
