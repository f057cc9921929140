// Package store provides the shared mutable state behind the pipeline: fixed-window
// request counters and short-lived, single-use challenge records.
//
// # Design
//
// Two small interfaces, [CounterStore] and [ChallengeStore], abstract the key-value
// operations the pipeline needs (windowed increment, put-with-TTL, atomic consume).
// [Memory] is the default mutex-guarded in-process implementation for single-instance
// deployments; [Redis] maps the same operations onto native Redis primitives
// (INCR + conditional EXPIRE, SET with TTL, GETDEL) for multi-instance deployments.
//
// Challenge consumption is destructive by contract: Consume removes the record on
// first call regardless of what the caller decides about the answer. That is what
// makes challenges single-use under concurrent verify attempts.
//
// # What this package must NOT do
//
//   - Compare answers or make accept/reject decisions (internal/rate, challenge,
//     and the root pipeline own policy).
//   - Store plaintext answers: records carry hashes only.
//   - Be imported outside the guardkit module.
package store
