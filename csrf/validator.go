package csrf

import (
	"errors"
	"net/http"
	"strings"

	"github.com/guardkit/guardkit/internal/secure"
)

var (
	// ErrTokenMissing is an exported constant or variable used by the CSRF validator.
	ErrTokenMissing = errors.New("csrf token missing")
	// ErrTokenMismatch is an exported constant or variable used by the CSRF validator.
	ErrTokenMismatch = errors.New("csrf token mismatch")
)

// Stable machine-readable reasons carried on rejections; callers log these,
// never the tokens themselves.
const (
	ReasonMissing  = "csrf_missing"
	ReasonMismatch = "csrf_mismatch"
)

// DefaultCookieName is an exported constant or variable used by the CSRF validator.
const DefaultCookieName = "csrf-token"

// DefaultHeaderName is an exported constant or variable used by the CSRF validator.
const DefaultHeaderName = "X-CSRF-Token"

// DefaultExemptPaths lists endpoints reached before any CSRF token exists.
// The set is configuration, not protocol, but must stay stable.
func DefaultExemptPaths() []string {
	return []string{
		"/auth/login",
		"/auth/register",
		"/auth/refresh",
		"/auth/logout",
		"/health",
	}
}

// Config holds validator tuning parameters. Zero values select the defaults.
type Config struct {
	CookieName  string
	HeaderName  string
	ExemptPaths []string
}

// Validator decides whether a state-changing request carries a valid
// double-submit token. Stateless and safe for concurrent use.
type Validator struct {
	cookieName string
	headerName string
	exempt     []string
}

// NewValidator creates a [Validator]. Exempt paths are normalized once here so
// per-request matching is string work only.
func NewValidator(cfg Config) *Validator {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = DefaultHeaderName
	}

	paths := cfg.ExemptPaths
	if paths == nil {
		paths = DefaultExemptPaths()
	}
	exempt := make([]string, 0, len(paths))
	for _, p := range paths {
		if n := NormalizePath(p); n != "" {
			exempt = append(exempt, n)
		}
	}

	return &Validator{
		cookieName: cookieName,
		headerName: headerName,
		exempt:     exempt,
	}
}

// CookieName returns the configured cookie carrying the token.
func (v *Validator) CookieName() string { return v.cookieName }

// HeaderName returns the configured header expected to echo the cookie.
func (v *Validator) HeaderName() string { return v.headerName }

// ShouldCheck reports whether the method is state-changing. Safe methods are
// never checked.
func (v *Validator) ShouldCheck(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// IsExempt reports whether the request path is on the exemption list, matched
// against the normalized path by exact or prefix match.
func (v *Validator) IsExempt(path string) bool {
	n := NormalizePath(path)
	for _, e := range v.exempt {
		if n == e || strings.HasPrefix(n, e+"/") {
			return true
		}
	}
	return false
}

// Validate requires both tokens present and equal. The comparison is
// constant-time; a short-circuiting == would leak prefix matches.
func (v *Validator) Validate(cookieToken, headerToken string) error {
	if cookieToken == "" || headerToken == "" {
		return ErrTokenMissing
	}
	if !secure.Equal(cookieToken, headerToken) {
		return ErrTokenMismatch
	}
	return nil
}

// GenerateTokenPair mints the shared secret for a new session: the caller sets
// it as the cookie value and clients echo it back in the header.
func (v *Validator) GenerateTokenPair() (string, error) {
	return secure.NewToken()
}

// NormalizePath strips the query string and fragment, trims trailing slashes,
// and lowercases, so /Auth/Login/?x=1 and /auth/login match the same entry.
func NormalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path = path[:i]
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	if path == "" {
		path = "/"
	}
	return strings.ToLower(path)
}
