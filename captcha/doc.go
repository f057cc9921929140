// Package captcha implements the adaptive verification subsystem: an ordered
// provider fallback chain (recaptcha-v3 -> recaptcha-v2 -> custom) driven by a
// small state machine, plus server-side verification of submitted tokens.
//
// # Fallback semantics
//
// The [Orchestrator] initializes the active provider with a bounded timeout and
// advances to the next provider on initialization error or timeout. Providers
// missing configuration (no site key) never enter the chain, so an absent v2 key
// means v3 falls directly to the self-hosted custom provider. The custom
// provider is terminal: it has no further fallback, only explicit reissue.
//
// Every transition invalidates any previously emitted verification token — a
// token from an abandoned provider must never be submitted. Verified state
// reaches the caller only through the OnVerify callback; the orchestrator never
// inspects or trusts token content, only presence.
//
// # Server-side verification
//
// [Verifier] checks submitted tokens before business logic runs: remote
// siteverify calls for the reCAPTCHA providers (bounded HTTP client), challenge
// consumption for the custom provider.
//
// # What this package must NOT do
//
//   - Treat a provider token as proof of anything without server verification.
//   - Surface provider failures to end users while fallback options remain.
//   - Log token values or provider secrets.
package captcha
