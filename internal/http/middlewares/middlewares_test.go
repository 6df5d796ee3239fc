package middlewares

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/suiticket/internal/auth"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	fn func(token string) (*auth.Claims, error)
}

func (f fakeVerifier) VerifySessionToken(token string) (*auth.Claims, error) {
	return f.fn(token)
}

func TestRequireSession(t *testing.T) {
	verifier := fakeVerifier{fn: func(token string) (*auth.Claims, error) {
		if token == "good" {
			return &auth.Claims{Address: "0xabc"}, nil
		}
		return nil, errors.New("bad token")
	}}

	r := gin.New()
	r.GET("/me", NewAuthMiddleware(verifier).RequireSession(), func(c *gin.Context) {
		addr, _ := AddressFromContext(c)

		held := 0
		for _, v := range c.Keys {
			if v == addr {
				held++
			}
		}
		if held != 1 {
			c.String(http.StatusInternalServerError, "address stored under %d keys", held)
			return
		}
		c.String(http.StatusOK, addr)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized, wantBody: "Please connect your wallet first"},
		{name: "empty_bearer", header: "Bearer   ", wantStatus: http.StatusUnauthorized, wantBody: "Missing or invalid session token"},
		{name: "invalid", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantBody: "Invalid or expired session token"},
		{name: "ok", header: "Bearer good", wantStatus: http.StatusOK, wantBody: "0xabc"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("body %q does not contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequestLogger_LogsAddressAndDigest(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestID(), RequestLogger(log))
	r.POST("/mint", func(c *gin.Context) {
		c.Set(string(CtxAddress), "0xabc")
		c.Set(string(CtxDigest), "D1")
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mint", nil))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if rec["address"] != "0xabc" || rec["digest"] != "D1" {
		t.Fatalf("unexpected log record: %v", rec)
	}
	if rec["status"] != float64(http.StatusCreated) {
		t.Fatalf("status = %v", rec["status"])
	}
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/", rl.RateLimiterMiddleware(func(*gin.Context) string { return "k" }), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	hit := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w
	}

	for i := 0; i < 2; i++ {
		if w := hit(); w.Code != http.StatusOK {
			t.Fatalf("hit %d: status %d", i, w.Code)
		}
	}

	w := hit()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", w.Header().Get("Retry-After"))
	}

	now = now.Add(61 * time.Second)
	if w := hit(); w.Code != http.StatusOK {
		t.Fatalf("after window reset: status %d", w.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("form body: status %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("empty body: status %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("json body: status %d", w.Code)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(), CORSMiddleware([]string{"http://localhost:5173"}))
	r.GET("/buyer", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/network", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/buyer", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("missing allow-origin")
	}

	req = httptest.NewRequest(http.MethodGet, "/buyer", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow-origin for unknown origin")
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("panel routes must not be cached")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/network", nil))
	if w.Header().Get("Cache-Control") != "" {
		t.Fatalf("network info is cacheable")
	}
}
