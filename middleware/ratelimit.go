package middleware

import (
	"net/http"
	"strconv"
	"time"

	guardkit "github.com/guardkit/guardkit"
)

// RateLimit enforces per-identifier request budgets. X-RateLimit headers are
// written on allowed and rejected responses alike so clients can self-throttle;
// rejections additionally carry Retry-After and a 429 body.
//
// A counter store outage fails open: availability of the protected API wins
// over rate accounting, and the outage is visible in the audit trail and
// metrics through the pipeline.
func RateLimit(pipeline *guardkit.Pipeline) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pipeline == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := guardkit.WithRequestInfo(r.Context(), r.Method, r.URL.Path)
			ctx = guardkit.WithClientIP(ctx, guardkit.ClientIP(r))

			identifier := guardkit.ClientIdentifier(r)
			sensitive := pipeline.IsSensitivePath(r.URL.Path)

			result, err := pipeline.CheckRate(ctx, identifier, sensitive)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := result.RetryAfter(time.Now())
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after "+strconv.Itoa(retryAfter)+"s")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
