// Package csrf implements stateless double-submit CSRF validation: the same
// unguessable secret must arrive in a cookie and in an explicit request header,
// which cross-site attackers cannot set.
//
// # Double-submit semantics
//
// [Validator.GenerateTokenPair] mints one 256-bit random secret used as both the
// cookie value and the expected header value. Validity is pure equality — there
// is no server-side record and no lookup. Comparison is constant-time so response
// latency leaks nothing about token content.
//
// Safe methods (GET, HEAD, OPTIONS) are never checked. Paths on the exemption
// list (login, registration, token refresh, logout, health — endpoints reached
// before any token exists) are matched after stripping the query string, trimming
// trailing slashes, and lowercasing, by exact or prefix match.
//
// # What this package must NOT do
//
//   - Read HTTP requests or write responses (middleware adapts the wire).
//   - Log token values.
//   - Keep any per-token server state.
package csrf
