package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	guardkit "github.com/guardkit/guardkit"
	"github.com/guardkit/guardkit/captcha"
)

// maxCaptchaBody bounds how much of a request body the middleware will buffer
// while extracting the CAPTCHA fields.
const maxCaptchaBody = 1 << 20

// RequireCaptcha verifies the CAPTCHA fields attached to a JSON form
// submission before the handler runs. The body is re-buffered so the handler
// still reads the full payload.
//
// Rejections are 403 with a retry hint; provider outages at verification time
// are 503 so clients distinguish "you failed" from "we failed".
func RequireCaptcha(pipeline *guardkit.Pipeline) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pipeline == nil {
				writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxCaptchaBody))
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			var sub captcha.Submission
			if err := json.Unmarshal(body, &sub); err != nil {
				writeError(w, http.StatusBadRequest, "verification failed, please retry")
				return
			}

			ctx := guardkit.WithRequestInfo(r.Context(), r.Method, r.URL.Path)
			ctx = guardkit.WithClientIP(ctx, guardkit.ClientIP(r))

			if err := pipeline.VerifyCaptcha(ctx, sub); err != nil {
				if errors.Is(err, guardkit.ErrCaptchaUnavailable) {
					writeError(w, http.StatusServiceUnavailable, "security check unavailable, please retry")
					return
				}
				writeError(w, http.StatusForbidden, "verification failed, please retry")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ChallengeHandler issues a fresh single-use image challenge. Mount on
// GET /captcha/challenge; the response carries the challenge ID, the PNG as
// base64, and the expiry timestamp.
func ChallengeHandler(pipeline *guardkit.Pipeline) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if pipeline == nil {
			writeError(w, http.StatusServiceUnavailable, "pipeline not configured")
			return
		}

		ctx := guardkit.WithClientIP(r.Context(), guardkit.ClientIP(r))

		issued, err := pipeline.IssueChallenge(ctx)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "challenge issuance failed")
			return
		}

		writeJSON(w, http.StatusOK, issued)
	})
}
