// Package middleware exposes HTTP middleware adapters for the CSRF, rate
// limiting, and CAPTCHA layers built on top of guardkit.Pipeline decisions.
//
// # Adapters
//
//   - [CSRF] — double-submit cookie validation with exemptions and bearer bypass.
//   - [RateLimit] — per-identifier budgets with X-RateLimit headers on every response.
//   - [RequireCaptcha] — verification of submitted CAPTCHA tokens before the handler runs.
//   - [ChallengeHandler] — issues self-hosted image challenges.
//
// Each adapter reads request state, calls the Pipeline, and rejects with the
// standard JSON error envelope on failure.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Pipeline calls. It does NOT
// implement validation logic itself — all decisions are delegated to the
// Pipeline.
//
// # What this package must NOT do
//
//   - Compare tokens or answers directly (delegates to the Pipeline).
//   - Access Redis (the Pipeline's stores handle I/O).
//   - Log or echo CSRF token values or challenge answers.
package middleware
