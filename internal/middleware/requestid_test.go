package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "propagated", header: "req-42_a.b:c", keep: true},
		{name: "missing", header: ""},
		{name: "too long", header: strings.Repeat("a", maxRequestIDLen+1)},
		{name: "newline", header: "abc\ninjected=1"},
		{name: "space", header: "abc def"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header["X-Request-Id"] = []string{tc.header}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("X-Request-ID"); got != seen {
				t.Fatalf("header %q != context %q", got, seen)
			}
			if tc.keep {
				if seen != tc.header {
					t.Fatalf("request id = %q, want %q", seen, tc.header)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Fatalf("request id = %q, want minted uuid", seen)
			}
		})
	}
}
