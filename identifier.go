package guardkit

import (
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// identifierSize is the number of digest bytes kept from the BLAKE2b hash.
// 16 bytes keeps keys short in the counter store while staying far beyond
// accidental-collision range for per-client counting.
const identifierSize = 16

// ClientIdentifier derives a stable, privacy-preserving rate-limit identifier
// from a request. The identifier is a hex-encoded BLAKE2b digest of the client
// IP and User-Agent, so raw addresses never reach the counter store or audit
// trail.
//
// ClientIdentifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ClientIdentifier(r *http.Request) string {
	ip := ClientIP(r)
	ua := r.UserAgent()

	h, err := blake2b.New(identifierSize, nil)
	if err != nil {
		// Only reachable with an invalid size constant.
		return ip
	}
	_, _ = h.Write([]byte(ip))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(ua))

	return hex.EncodeToString(h.Sum(nil))
}

// ClientIP extracts the originating client address from a request, preferring
// the first entry of X-Forwarded-For, then X-Real-IP, then the connection's
// remote address.
//
// ClientIP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
