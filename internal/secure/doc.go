// Package secure provides internal primitives for secret handling shared by the
// CSRF validator and the challenge service: random token generation, normalized
// answer hashing, and a single constant-time comparison used everywhere a secret
// is matched.
//
// # Comparison semantics
//
// Equal hashes both inputs with SHA-256 before subtle.ConstantTimeCompare, so
// execution time depends on neither content nor length of the secrets.
//
// # What this package must NOT do
//
//   - Log or return plaintext secrets beyond the generated token itself.
//   - Be imported outside the guardkit module.
package secure
