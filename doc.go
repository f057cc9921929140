// Package guardkit provides a request-integrity defense pipeline for state-changing
// HTTP operations: double-submit CSRF validation, fixed-window per-client rate
// limiting, and an adaptive multi-provider CAPTCHA subsystem with a self-hosted
// image challenge as terminal fallback.
//
// The package is designed for concurrent server workloads: Pipeline methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// guardkit is the public surface. It exposes [Pipeline], [Builder], [Config], and
// value types (RateResult, MetricsSnapshot, AuditEvent, etc.). Counter and challenge
// persistence, window bookkeeping, and audit dispatch live under internal/ and are
// never exported. CSRF token handling, the CAPTCHA orchestrator, and the challenge
// service are public subpackages so hosts can use them without the full pipeline.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or record encodings in its public API.
//   - Log or emit CSRF token values, challenge answers, or provider secrets.
//   - Run business logic: the pipeline decides accept/reject before handlers execute
//     and nothing else.
//
// # Performance contract
//
// ValidateCSRF and CheckRate run on every state-changing request. ValidateCSRF is
// allocation-light and performs no I/O; CheckRate is allowed one store round-trip.
// Challenge issuance renders an image and is expected only on the fallback path.
package guardkit
