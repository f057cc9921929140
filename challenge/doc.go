// Package challenge issues and verifies the self-hosted image CAPTCHA backing the
// terminal "custom" provider: a short-lived, single-use challenge whose expected
// answer is stored only as a hash.
//
// # Single-use invariant
//
// A challenge is consumed by its first Verify call regardless of outcome —
// success, wrong answer, and expiry are all absorbing. An attacker cannot retry
// guesses against one issued challenge; the legitimate retry path is a fresh
// Issue. Consumption is delegated to the store's atomic Consume so the invariant
// holds under concurrent verifies.
//
// # Comparison semantics
//
// Answers render in a fixed unambiguous alphabet (no O/0, I/1). Verification
// case-normalizes the candidate and compares against the stored SHA-256 hash in
// constant time. Expiry is checked before comparison: an expired challenge fails
// even with the correct answer.
//
// # What this package must NOT do
//
//   - Persist or log plaintext answers.
//   - Enforce rate limits (the pipeline's limiter covers the issue endpoint).
//   - Write HTTP responses.
package challenge
