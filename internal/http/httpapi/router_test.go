package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"headshotpro/internal/domain"
	"headshotpro/internal/generation"
	"headshotpro/internal/http/handlers"
	"headshotpro/internal/ledger"
	"headshotpro/internal/middleware"
)

type fakeGenerations struct{}

func (fakeGenerations) Submit(context.Context, generation.SubmitRequest) (generation.Creation, error) {
	return generation.Creation{JobID: "job", Status: domain.GenerationProcessing}, nil
}

func (fakeGenerations) Status(_ context.Context, _, jobID string) (generation.StatusResult, error) {
	return generation.StatusResult{JobID: jobID, Status: domain.GenerationPending}, nil
}

func (fakeGenerations) Cancel(context.Context, string) bool { return true }

func (fakeGenerations) List(context.Context, string, int, int) (generation.Page, error) {
	return generation.Page{Items: []generation.StatusResult{}}, nil
}

func newTestRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()
	app := &handlers.App{
		Generations: fakeGenerations{},
		Credits:     ledger.NewService(ledger.Options{Store: ledger.NewMemoryStore()}),
		JWTSecret:   "secret",
		Logger:      zerolog.Nop(),
	}
	opts.Logger = zerolog.Nop()
	opts.JWTSecret = "secret"
	return NewRouter(app, opts)
}

func bearer(t *testing.T) string {
	t.Helper()
	tok, err := middleware.SignJWT("secret", "user-1", "", time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return "Bearer " + tok
}

func TestRoutes(t *testing.T) {
	h := newTestRouter(t, Options{InternalToken: "internal"})
	auth := bearer(t)
	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		headers map[string]string
		want    int
	}{
		{name: "health", method: http.MethodGet, path: "/v1/healthz", want: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "openapi", method: http.MethodGet, path: "/v1/openapi.json", want: http.StatusOK},
		{name: "styles public", method: http.MethodGet, path: "/v1/styles", want: http.StatusOK},
		{name: "submit without token", method: http.MethodPost, path: "/v1/generations", body: `{}`, want: http.StatusUnauthorized},
		{name: "submit", method: http.MethodPost, path: "/v1/generations", body: `{"styleId":"business-suit"}`, headers: map[string]string{"Authorization": auth}, want: http.StatusAccepted},
		{name: "status", method: http.MethodGet, path: "/v1/generations/abc", headers: map[string]string{"Authorization": auth}, want: http.StatusOK},
		{name: "cancel", method: http.MethodDelete, path: "/v1/generations/abc", headers: map[string]string{"Authorization": auth}, want: http.StatusOK},
		{name: "credits", method: http.MethodGet, path: "/v1/credits", headers: map[string]string{"Authorization": auth}, want: http.StatusOK},
		{name: "purchase without internal token", method: http.MethodPost, path: "/internal/billing/purchases", body: `{}`, want: http.StatusUnauthorized},
		{name: "purchase", method: http.MethodPost, path: "/internal/billing/purchases", body: `{"userId":"user-1","tierId":"starter","paymentId":"p1"}`, headers: map[string]string{"X-Internal-Token": "internal"}, want: http.StatusCreated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("%s %s = %d, want %d (%s)", tc.method, tc.path, rec.Code, tc.want, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatalf("missing X-Request-ID")
			}
		})
	}
}

func TestSubmitRateLimited(t *testing.T) {
	h := newTestRouter(t, Options{SubmitPerMinute: 1})
	auth := bearer(t)
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/generations", strings.NewReader(`{}`))
		req.Header.Set("Authorization", auth)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "generated"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "generated", "a.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := newTestRouter(t, Options{StaticDir: dir})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/generated/a.jpg", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg" {
		t.Fatalf("static = %d %q", rec.Code, rec.Body.String())
	}
}
