package middleware

import (
	"errors"
	"net/http"

	guardkit "github.com/guardkit/guardkit"
)

// CSRF enforces double-submit cookie validation on state-changing requests.
// Safe methods, exempt paths, and requests carrying a valid bearer token pass
// through; everything else needs matching cookie and header tokens.
func CSRF(pipeline *guardkit.Pipeline) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pipeline == nil {
				writeError(w, http.StatusForbidden, "CSRF token validation failed: pipeline not configured")
				return
			}

			validator := pipeline.CSRFValidator()
			if !validator.ShouldCheck(r.Method) || pipeline.CSRFExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := guardkit.WithRequestInfo(r.Context(), r.Method, r.URL.Path)
			ctx = guardkit.WithClientIP(ctx, guardkit.ClientIP(r))

			if pipeline.BearerBypassAllowed(ctx, r.Header.Get("Authorization")) {
				next.ServeHTTP(w, r)
				return
			}

			var cookieToken string
			if c, err := r.Cookie(validator.CookieName()); err == nil {
				cookieToken = c.Value
			}
			headerToken := r.Header.Get(validator.HeaderName())

			if err := pipeline.ValidateCSRF(ctx, cookieToken, headerToken); err != nil {
				if errors.Is(err, guardkit.ErrCSRFMissing) {
					writeError(w, http.StatusForbidden, "CSRF token validation failed: token missing")
					return
				}
				writeError(w, http.StatusForbidden, "CSRF token validation failed: token mismatch")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IssueCSRFToken mints a fresh token pair and sets the CSRF cookie. Handlers
// mount it on whatever route hands out sessions; the response body carries the
// token so non-browser clients can echo it in the header.
func IssueCSRFToken(pipeline *guardkit.Pipeline) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pipeline == nil {
			writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
			return
		}

		token, err := pipeline.GenerateCSRFToken()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "token generation failed")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     pipeline.CSRFValidator().CookieName(),
			Value:    token,
			Path:     "/",
			SameSite: http.SameSiteStrictMode,
			Secure:   r.TLS != nil,
		})

		writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
	})
}
