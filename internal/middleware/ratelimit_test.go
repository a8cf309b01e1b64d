package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{
			name:       "single ip",
			header:     "203.0.113.1",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "multiple ips use first",
			header:     " 203.0.113.1 , 198.51.100.2 ",
			remoteAddr: "198.51.100.10:1234",
			want:       "203.0.113.1",
		},
		{
			name:       "invalid forwarded falls back",
			header:     "invalid",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "empty forwarded uses remote host",
			header:     "",
			remoteAddr: "198.51.100.10:1234",
			want:       "198.51.100.10",
		},
		{
			name:       "ipv6 forwarded",
			header:     "2001:db8::1",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::1",
		},
		{
			name:       "ipv6 remote fallback",
			header:     "invalid",
			remoteAddr: net.JoinHostPort("2001:db8::2", "443"),
			want:       "2001:db8::2",
		},
		{
			name:       "remote without port",
			header:     "invalid",
			remoteAddr: "203.0.113.1",
			want:       "203.0.113.1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.header != "" {
				req.Header.Set("X-Forwarded-For", tc.header)
			}
			if got := clientIPForRateLimit(req); got != tc.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	want := []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}
	for i, code := range want {
		req := httptest.NewRequest(http.MethodPost, "/v1/generations", nil)
		req.RemoteAddr = "198.51.100.7:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != code {
			t.Fatalf("request %d status = %d, want %d", i, rec.Code, code)
		}
		if code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Fatalf("missing Retry-After")
		}
	}

	other := httptest.NewRequest(http.MethodPost, "/v1/generations", nil)
	other.RemoteAddr = "198.51.100.8:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("other client status = %d", rec.Code)
	}
}

func TestRateLimitKeysByUser(t *testing.T) {
	h := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/generations", nil)
		req.RemoteAddr = "198.51.100.9:5000"
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	tests := []struct {
		user string
		want int
	}{
		{user: "u1", want: http.StatusAccepted},
		{user: "u2", want: http.StatusAccepted},
		{user: "u1", want: http.StatusTooManyRequests},
		{user: "", want: http.StatusAccepted},
		{user: "", want: http.StatusTooManyRequests},
	}
	for i, tc := range tests {
		if got := send(tc.user); got != tc.want {
			t.Fatalf("request %d (user %q) status = %d, want %d", i, tc.user, got, tc.want)
		}
	}
}

func TestRateLimitLocalizedBody(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := &limiter{limit: 1, per: time.Minute, now: func() time.Time { return now }, buckets: map[string]*bucket{}}
	h := rateLimit(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		locale string
		want   string
	}{
		{locale: "en", want: "Too many generation requests, retry in 61 seconds"},
		{locale: "zh", want: "生成请求过于频繁，请 61 秒后重试"},
	}
	for _, tc := range tests {
		t.Run(tc.locale, func(t *testing.T) {
			l.buckets = map[string]*bucket{"user:u1": {count: 1, until: now.Add(time.Minute)}}
			req := httptest.NewRequest(http.MethodPost, "/v1/generations", nil)
			ctx := context.WithValue(req.Context(), LocaleKey, tc.locale)
			req = req.WithContext(ContextWithUserID(ctx, "u1"))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode %q: %v", rec.Body.String(), err)
			}
			if rec.Code != http.StatusTooManyRequests || body["code"] != "rate_limited" || body["message"] != tc.want {
				t.Fatalf("status = %d body = %v, want message %q", rec.Code, body, tc.want)
			}
			if got := rec.Header().Get("Retry-After"); got != "61" {
				t.Fatalf("Retry-After = %q, want 61", got)
			}
		})
	}
}

func TestLimiterPrunesExpiredBuckets(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := &limiter{limit: 1, per: time.Minute, now: func() time.Time { return now }, buckets: map[string]*bucket{}}
	for _, key := range []string{"ip:a", "ip:b", "ip:c"} {
		if ok, _ := l.allow(key); !ok {
			t.Fatalf("first request for %s rejected", key)
		}
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := l.allow("ip:d"); !ok {
		t.Fatalf("fresh key rejected")
	}
	if len(l.buckets) != 1 {
		t.Fatalf("buckets = %d, want 1 after prune", len(l.buckets))
	}
}
