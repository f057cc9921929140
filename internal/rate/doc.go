// Package rate enforces per-identifier request budgets with fixed-window counters
// over a pluggable counter store.
//
// # Window semantics
//
// One counter per identifier per endpoint class; the window resets wholesale when
// elapsed. Bursts straddling a window boundary can reach up to twice the nominal
// ceiling; that is the documented trade-off for an O(1) hot path. Key prefixes:
//   - ra: — sensitive (auth family) endpoints
//   - rg: — general API endpoints
//
// # What this package must NOT do
//
//   - Derive identifiers (the root package hashes IP + User-Agent).
//   - Write HTTP responses or headers (middleware owns the wire format).
//   - Be imported outside the guardkit module.
package rate
