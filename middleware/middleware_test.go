package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	guardkit "github.com/guardkit/guardkit"
)

func newTestPipeline(t *testing.T, mutate func(*guardkit.Config)) *guardkit.Pipeline {
	t.Helper()

	cfg := guardkit.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	pipeline, err := guardkit.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(pipeline.Close)

	return pipeline
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestCSRFRejectsMissingHeader(t *testing.T) {
	pipeline := newTestPipeline(t, nil)
	handler := CSRF(pipeline)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.AddCookie(&http.Cookie{Name: "csrf-token", Value: "ABC"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.StatusCode != 403 || body.Error != "Forbidden" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if !strings.Contains(body.Message, "token missing") {
		t.Fatalf("expected token missing message, got %q", body.Message)
	}
}

func TestCSRFRejectsMismatch(t *testing.T) {
	pipeline := newTestPipeline(t, nil)
	handler := CSRF(pipeline)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.AddCookie(&http.Cookie{Name: "csrf-token", Value: "ABC"})
	req.Header.Set("X-CSRF-Token", "XYZ")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body := decodeError(t, rec); !strings.Contains(body.Message, "token mismatch") {
		t.Fatalf("expected token mismatch message, got %q", body.Message)
	}
}

func TestCSRFAllowsMatchingPair(t *testing.T) {
	pipeline := newTestPipeline(t, nil)
	handler := CSRF(pipeline)(okHandler())

	token, err := pipeline.GenerateCSRFToken()
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.AddCookie(&http.Cookie{Name: "csrf-token", Value: token})
	req.Header.Set("X-CSRF-Token", token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCSRFSkipsSafeMethods(t *testing.T) {
	pipeline := newTestPipeline(t, nil)
	handler := CSRF(pipeline)(okHandler())

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		req := httptest.NewRequest(method, "/posts", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", method, rec.Code)
		}
	}
}

func TestCSRFSkipsExemptPath(t *testing.T) {
	pipeline := newTestPipeline(t, nil)
	handler := CSRF(pipeline)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for exempt path, got %d", rec.Code)
	}
}

func TestCSRFBearerBypass(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	pipeline := newTestPipeline(t, func(c *guardkit.Config) {
		c.CSRF.BearerBypass = true
		c.CSRF.BearerHMACKey = key
	})
	handler := CSRF(pipeline)(okHandler())

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected bypass, got %d", rec.Code)
	}

	// The prefix alone must still be rejected.
	req = httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.Header.Set("Authorization", "Bearer forged")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for forged token, got %d", rec.Code)
	}
}

func TestIssueCSRFTokenRoundTrip(t *testing.T) {
	pipeline := newTestPipeline(t, nil)

	rec := httptest.NewRecorder()
	IssueCSRFToken(pipeline).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/csrf", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Token string `json:"csrfToken"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.Token == "" {
		t.Fatal("empty token in body")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "csrf-token" {
		t.Fatalf("expected one csrf-token cookie, got %v", cookies)
	}
	if cookies[0].Value != payload.Token {
		t.Fatal("cookie and body token must match")
	}

	// The issued pair passes validation end to end.
	handler := CSRF(pipeline)(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.AddCookie(&http.Cookie{Name: "csrf-token", Value: payload.Token})
	req.Header.Set("X-CSRF-Token", payload.Token)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimitSensitiveCeiling(t *testing.T) {
	pipeline := newTestPipeline(t, nil)
	handler := RateLimit(pipeline)(okHandler())

	for i := 1; i <= 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
			t.Fatalf("request %d: expected limit 5, got %q", i, got)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(5-i) {
			t.Fatalf("request %d: expected remaining %d, got %q", i, 5-i, got)
		}
		if rec.Header().Get("X-RateLimit-Reset") == "" {
			t.Fatalf("request %d: missing reset header", i)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil {
		t.Fatalf("bad Retry-After: %v", err)
	}
	// Default auth window is 15 minutes; the remaining window is nearly all
	// of it for back-to-back requests.
	if retryAfter < 1 || retryAfter > 900 {
		t.Fatalf("Retry-After %d out of window range", retryAfter)
	}

	body := decodeError(t, rec)
	if body.StatusCode != 429 {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if !strings.Contains(body.Message, "rate limit exceeded") {
		t.Fatalf("unexpected message: %q", body.Message)
	}
}

func TestRateLimitGeneralScopeHeaders(t *testing.T) {
	pipeline := newTestPipeline(t, nil)
	handler := RateLimit(pipeline)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "100" {
		t.Fatalf("expected limit 100, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "99" {
		t.Fatalf("expected remaining 99, got %q", got)
	}
}

func TestRateLimitSeparatesClients(t *testing.T) {
	pipeline := newTestPipeline(t, nil)
	handler := RateLimit(pipeline)(okHandler())

	exhaust := func(addr string) {
		for i := 0; i < 5; i++ {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = addr
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}
	}
	exhaust("198.51.100.1:4000")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "198.51.100.2:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("other client must not share the window, got %d", rec.Code)
	}
}

func TestRequireCaptchaPassesValidSubmission(t *testing.T) {
	siteverify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"score":0.9}`)
	}))
	defer siteverify.Close()

	pipeline := newTestPipeline(t, func(c *guardkit.Config) {
		c.Captcha.V3Secret = "secret-v3"
		c.Captcha.VerifyURL = siteverify.URL
	})

	var seenBody string
	handler := RequireCaptcha(pipeline)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seenBody = string(data)
		w.WriteHeader(http.StatusCreated)
	}))

	payload := `{"title":"hello","captchaToken":"tok-v3","captchaType":"recaptcha-v3"}`
	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	// The handler must see the whole original payload, not a drained body.
	if seenBody != payload {
		t.Fatalf("handler saw %q", seenBody)
	}
}

func TestRequireCaptchaRejectsFailedVerification(t *testing.T) {
	siteverify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false}`)
	}))
	defer siteverify.Close()

	pipeline := newTestPipeline(t, func(c *guardkit.Config) {
		c.Captcha.V2Secret = "secret-v2"
		c.Captcha.VerifyURL = siteverify.URL
	})
	handler := RequireCaptcha(pipeline)(okHandler())

	payload := `{"captchaToken":"tok-v2","captchaType":"recaptcha-v2"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body := decodeError(t, rec); !strings.Contains(body.Message, "verification failed") {
		t.Fatalf("unexpected message: %q", body.Message)
	}
}

func TestRequireCaptchaUnavailableIs503(t *testing.T) {
	// No secrets configured: remote verification cannot be attempted.
	pipeline := newTestPipeline(t, nil)
	handler := RequireCaptcha(pipeline)(okHandler())

	payload := `{"captchaToken":"tok-v3","captchaType":"recaptcha-v3"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body := decodeError(t, rec); !strings.Contains(body.Message, "security check unavailable") {
		t.Fatalf("unexpected message: %q", body.Message)
	}
}

func TestRequireCaptchaRejectsMalformedBody(t *testing.T) {
	pipeline := newTestPipeline(t, nil)
	handler := RequireCaptcha(pipeline)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRequireCaptchaCustomChallengeFlow(t *testing.T) {
	pipeline := newTestPipeline(t, nil)

	// Issue through the handler, then submit the challenge id. The answer is
	// wrong on purpose: what matters is that the single-use record is
	// consulted and the rejection is the client-fixable 403.
	rec := httptest.NewRecorder()
	ChallengeHandler(pipeline).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/captcha/challenge", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var issued struct {
		ID        string `json:"captchaId"`
		Image     string `json:"image"`
		ExpiresAt string `json:"expiresAt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&issued); err != nil {
		t.Fatal(err)
	}
	if issued.ID == "" || issued.Image == "" || issued.ExpiresAt == "" {
		t.Fatalf("incomplete challenge payload: %+v", issued)
	}

	handler := RequireCaptcha(pipeline)(okHandler())
	payload := fmt.Sprintf(`{"captchaToken":"WRONG9","captchaId":%q,"captchaType":"custom"}`, issued.ID)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(payload))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestChallengeHandlerRejectsNonGET(t *testing.T) {
	pipeline := newTestPipeline(t, nil)

	rec := httptest.NewRecorder()
	ChallengeHandler(pipeline).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/captcha/challenge", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
