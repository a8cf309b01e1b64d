package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"headshotpro/internal/domain"
	"headshotpro/internal/generation"
	"headshotpro/internal/infra/google"
	"headshotpro/internal/ledger"
	"headshotpro/internal/middleware"
)

type stubGenerations struct {
	submitErr error
	submitted generation.SubmitRequest
	status    generation.StatusResult
	statusFor string
}

func (s *stubGenerations) Submit(_ context.Context, req generation.SubmitRequest) (generation.Creation, error) {
	s.submitted = req
	if s.submitErr != nil {
		return generation.Creation{}, s.submitErr
	}
	return generation.Creation{JobID: "v3_text-to-image_1_abc", Status: domain.GenerationProcessing}, nil
}

func (s *stubGenerations) Status(_ context.Context, userID, jobID string) (generation.StatusResult, error) {
	s.statusFor = userID
	if s.status.JobID == jobID {
		return s.status, nil
	}
	return generation.StatusResult{JobID: jobID, Status: domain.GenerationPending}, nil
}

func (s *stubGenerations) Cancel(context.Context, string) bool { return true }

func (s *stubGenerations) List(_ context.Context, userID string, limit, offset int) (generation.Page, error) {
	return generation.Page{Items: []generation.StatusResult{{JobID: fmt.Sprintf("%s:%d:%d", userID, limit, offset)}}, Total: 1}, nil
}

type stubVerifier struct {
	identity *google.Identity
	err      error
}

func (s stubVerifier) VerifyIDToken(context.Context, string) (*google.Identity, error) {
	return s.identity, s.err
}

type stubUsers struct {
	users map[string]*domain.User
}

func (s *stubUsers) UpsertByGoogleSub(_ context.Context, u *domain.User) (*domain.User, error) {
	if s.users == nil {
		s.users = map[string]*domain.User{}
	}
	for _, existing := range s.users {
		if existing.GoogleSub == u.GoogleSub {
			return existing, nil
		}
	}
	out := *u
	out.ID = fmt.Sprintf("user-%d", len(s.users)+1)
	s.users[out.ID] = &out
	return &out, nil
}

func (s *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func newTestApp() (*App, *stubGenerations, *ledger.Service) {
	gens := &stubGenerations{}
	credits := ledger.NewService(ledger.Options{Store: ledger.NewMemoryStore()})
	return &App{
		Generations: gens,
		Credits:     credits,
		Users:       &stubUsers{},
		JWTSecret:   "secret",
		Logger:      zerolog.Nop(),
	}, gens, credits
}

func testRouter(a *App) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/generations", a.CreateGeneration)
	r.Get("/v1/generations", a.ListGenerations)
	r.Get("/v1/generations/{job_id}", a.GenerationStatus)
	r.Delete("/v1/generations/{job_id}", a.CancelGeneration)
	r.Get("/v1/credits", a.GetCredits)
	r.Post("/v1/credits/signup-bonus", a.SignupBonus)
	r.Get("/v1/billing/trialer-status", a.TrialerStatus)
	r.Post("/internal/billing/purchases", a.RecordPurchase)
	r.Get("/v1/styles", a.ListStyles)
	r.Post("/v1/auth/google", a.AuthGoogle)
	r.Get("/v1/me", a.Me)
	r.Get("/v1/healthz", a.Health)
	return r
}

func do(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.LocaleKey, "en")
	ctx = middleware.ContextWithUserID(ctx, userID)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestCreateGenerationErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		userID   string
		body     string
		wantCode int
		wantKey  string
	}{
		{name: "accepted", userID: "u1", body: `{"styleId":"business-suit"}`, wantCode: http.StatusAccepted},
		{name: "no user", body: `{}`, wantCode: http.StatusUnauthorized, wantKey: "missing_user"},
		{name: "bad json", userID: "u1", body: `{`, wantCode: http.StatusBadRequest, wantKey: "invalid_payload"},
		{name: "invalid style", userID: "u1", body: `{}`, err: domain.ErrInvalidStyle, wantCode: http.StatusBadRequest, wantKey: "invalid_style"},
		{name: "invalid url", userID: "u1", body: `{}`, err: fmt.Errorf("%w: bad", domain.ErrInvalidInput), wantCode: http.StatusBadRequest, wantKey: "invalid_input"},
		{name: "unknown provider", userID: "u1", body: `{}`, err: fmt.Errorf("%w: x", domain.ErrUnknownProvider), wantCode: http.StatusBadRequest, wantKey: "unknown_provider"},
		{name: "insufficient", userID: "u1", body: `{}`, err: domain.ErrInsufficientCredits, wantCode: http.StatusPaymentRequired, wantKey: "insufficient_credits"},
		{name: "not configured", userID: "u1", body: `{}`, err: domain.ErrProviderNotConfigured, wantCode: http.StatusServiceUnavailable, wantKey: "provider_not_configured"},
		{name: "unexpected", userID: "u1", body: `{}`, err: errors.New("db down"), wantCode: http.StatusInternalServerError, wantKey: "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, gens, _ := newTestApp()
			gens.submitErr = tc.err
			rec := do(t, testRouter(app), http.MethodPost, "/v1/generations", tc.userID, tc.body)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.wantCode, rec.Body.String())
			}
			if tc.wantKey == "" {
				var created generation.Creation
				decode(t, rec, &created)
				if created.JobID == "" || created.Status != domain.GenerationProcessing {
					t.Fatalf("created = %+v", created)
				}
				if gens.submitted.UserID != tc.userID || gens.submitted.StyleID != "business-suit" {
					t.Fatalf("submitted = %+v", gens.submitted)
				}
				return
			}
			var body errorResponse
			decode(t, rec, &body)
			if body.Code != tc.wantKey || body.Message == "" {
				t.Fatalf("body = %+v, want code %q", body, tc.wantKey)
			}
		})
	}
}

func TestErrorMessageLocalized(t *testing.T) {
	app, gens, _ := newTestApp()
	gens.submitErr = domain.ErrInsufficientCredits
	req := httptest.NewRequest(http.MethodPost, "/v1/generations", strings.NewReader(`{}`))
	ctx := context.WithValue(req.Context(), middleware.LocaleKey, "zh")
	ctx = middleware.ContextWithUserID(ctx, "u1")
	rec := httptest.NewRecorder()
	testRouter(app).ServeHTTP(rec, req.WithContext(ctx))
	var body errorResponse
	decode(t, rec, &body)
	if body.Message != "积分不足" {
		t.Fatalf("message = %q, want localized text", body.Message)
	}
}

func TestGenerationStatusAndCancel(t *testing.T) {
	app, gens, _ := newTestApp()
	gens.status = generation.StatusResult{JobID: "job-1", Status: domain.GenerationCompleted, ImageURL: "https://cdn/x.jpg"}
	h := testRouter(app)

	rec := do(t, h, http.MethodGet, "/v1/generations/job-1", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]any
	decode(t, rec, &got)
	if got["status"] != "completed" || got["imageUrl"] != "https://cdn/x.jpg" || got["id"] != "job-1" {
		t.Fatalf("body = %v", got)
	}
	if gens.statusFor != "u1" {
		t.Fatalf("status read for %q, want u1", gens.statusFor)
	}

	rec = do(t, h, http.MethodGet, "/v1/generations/unknown", "u1", "")
	decode(t, rec, &got)
	if rec.Code != http.StatusOK || got["status"] != "pending" {
		t.Fatalf("unknown job = %d %v", rec.Code, got)
	}

	rec = do(t, h, http.MethodDelete, "/v1/generations/job-1", "u1", "")
	var cancelled map[string]bool
	decode(t, rec, &cancelled)
	if !cancelled["cancelled"] {
		t.Fatalf("cancel body = %v", cancelled)
	}
}

func TestListGenerationsPassesPaging(t *testing.T) {
	app, _, _ := newTestApp()
	rec := do(t, testRouter(app), http.MethodGet, "/v1/generations?limit=5&offset=10", "u1", "")
	var page generation.Page
	decode(t, rec, &page)
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].JobID != "u1:5:10" {
		t.Fatalf("page = %+v", page)
	}
}

func TestCreditsEndpoints(t *testing.T) {
	app, _, credits := newTestApp()
	h := testRouter(app)
	ctx := context.Background()

	rec := do(t, h, http.MethodPost, "/v1/credits/signup-bonus", "u1", "")
	var granted map[string]bool
	decode(t, rec, &granted)
	if !granted["granted"] {
		t.Fatalf("first signup bonus = %v", granted)
	}
	rec = do(t, h, http.MethodPost, "/v1/credits/signup-bonus", "u1", "")
	decode(t, rec, &granted)
	if granted["granted"] {
		t.Fatalf("second signup bonus granted")
	}

	if _, err := credits.Deduct(ctx, ledger.DeductRequest{UserID: "u1", Amount: 1, ReferenceID: "generation_j1", Description: "Headshot generation (Business Suit)"}); err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	rec = do(t, h, http.MethodGet, "/v1/credits?limit=1", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body creditsResponse
	decode(t, rec, &body)
	if body.Credits.Balance != 1 || body.Credits.TotalEarned != 2 || body.Credits.TotalSpent != 1 {
		t.Fatalf("credits = %+v", body.Credits)
	}
	if len(body.Transactions) != 1 || body.Transactions[0].Amount != -1 {
		t.Fatalf("transactions = %+v", body.Transactions)
	}

	rec = do(t, h, http.MethodGet, "/v1/credits", "nobody-yet", "")
	decode(t, rec, &body)
	if body.Credits != (ledger.Balance{}) || body.Transactions == nil || len(body.Transactions) != 0 {
		t.Fatalf("empty account = %+v", body)
	}
}

func TestRecordPurchase(t *testing.T) {
	app, _, _ := newTestApp()
	h := testRouter(app)
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantKey  string
	}{
		{name: "trialer", body: `{"userId":"u1","tierId":"trialer","paymentId":"p1"}`, wantCode: http.StatusCreated},
		{name: "duplicate payment", body: `{"userId":"u1","tierId":"starter","paymentId":"p1"}`, wantCode: http.StatusConflict, wantKey: "duplicate_payment"},
		{name: "trialer again", body: `{"userId":"u1","tierId":"trialer","paymentId":"p2"}`, wantCode: http.StatusConflict, wantKey: "trialer_purchased"},
		{name: "unknown tier", body: `{"userId":"u1","tierId":"gold","paymentId":"p3"}`, wantCode: http.StatusBadRequest, wantKey: "unknown_tier"},
		{name: "missing user", body: `{"tierId":"starter","paymentId":"p4"}`, wantCode: http.StatusBadRequest, wantKey: "invalid_payload"},
		{name: "missing payment", body: `{"userId":"u1","tierId":"starter"}`, wantCode: http.StatusBadRequest, wantKey: "invalid_input"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/internal/billing/purchases", "", tc.body)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.wantCode, rec.Body.String())
			}
			if tc.wantKey == "" {
				var body map[string]int64
				decode(t, rec, &body)
				if body["balance"] != 2 {
					t.Fatalf("balance = %d, want 2", body["balance"])
				}
				return
			}
			var body errorResponse
			decode(t, rec, &body)
			if body.Code != tc.wantKey {
				t.Fatalf("code = %q, want %q", body.Code, tc.wantKey)
			}
		})
	}

	rec := do(t, h, http.MethodGet, "/v1/billing/trialer-status", "u1", "")
	var status map[string]bool
	decode(t, rec, &status)
	if !status["hasPurchased"] {
		t.Fatalf("trialer status = %v", status)
	}
}

func TestListStyles(t *testing.T) {
	app, _, _ := newTestApp()
	rec := do(t, testRouter(app), http.MethodGet, "/v1/styles?category=business", "", "")
	var body stylesResponse
	decode(t, rec, &body)
	if len(body.Styles) == 0 {
		t.Fatalf("no business styles")
	}
	for _, s := range body.Styles {
		if s.Category != "business" {
			t.Fatalf("style %s has category %s", s.ID, s.Category)
		}
	}
	if strings.Contains(rec.Body.String(), "aiPrompt") || strings.Contains(rec.Body.String(), "AIPrompt") {
		t.Fatalf("prompt leaked: %s", rec.Body.String())
	}
	if len(body.Categories) == 0 || body.Categories[0].ID != "all" {
		t.Fatalf("categories = %+v", body.Categories)
	}
}

func TestAuthGoogle(t *testing.T) {
	app, _, _ := newTestApp()
	app.GoogleVerifier = stubVerifier{identity: &google.Identity{Subject: "g-1", Email: "a@example.com", Name: "Ada"}}
	h := testRouter(app)

	rec := do(t, h, http.MethodPost, "/v1/auth/google", "", `{"idToken":"tok"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var resp googleVerifyResponse
	decode(t, rec, &resp)
	if !resp.SignupBonusGranted || resp.User.Email != "a@example.com" {
		t.Fatalf("resp = %+v", resp)
	}
	claims, err := middleware.VerifyJWT("secret", resp.Token)
	if err != nil || claims.Subject != resp.User.ID {
		t.Fatalf("token claims = %+v, %v", claims, err)
	}

	rec = do(t, h, http.MethodPost, "/v1/auth/google", "", `{"idToken":"tok"}`)
	decode(t, rec, &resp)
	if resp.SignupBonusGranted {
		t.Fatalf("bonus granted twice")
	}

	rec = do(t, h, http.MethodGet, "/v1/me", resp.User.ID, "")
	var me userProfileDTO
	decode(t, rec, &me)
	if me.ID != resp.User.ID || me.Credits == nil || me.Credits.Balance != 2 {
		t.Fatalf("me = %+v", me)
	}

	app.GoogleVerifier = stubVerifier{err: errors.New("bad signature")}
	rec = do(t, h, http.MethodPost, "/v1/auth/google", "", `{"idToken":"tok"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/v1/auth/google", "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty token status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	app, _, _ := newTestApp()
	h := testRouter(app)
	if rec := do(t, h, http.MethodGet, "/v1/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthy status = %d", rec.Code)
	}
	app.Ping = func(context.Context) error { return errors.New("down") }
	if rec := do(t, h, http.MethodGet, "/v1/healthz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded status = %d", rec.Code)
	}
}

func TestOpenAPIDocumentsRoutes(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(openAPISpec, &doc); err != nil {
		t.Fatalf("openapi.json: %v", err)
	}
	for _, path := range []string{"/v1/generations", "/v1/generations/{job_id}", "/v1/credits", "/internal/billing/purchases"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Fatalf("openapi.json missing %s", path)
		}
	}
	if _, ok := doc.Paths["/v1/generations/{job_id}"]["delete"]; !ok {
		t.Fatalf("cancel route undocumented")
	}
}

func TestOpenAPIRevalidation(t *testing.T) {
	app, _, _ := newTestApp()
	rec := httptest.NewRecorder()
	app.OpenAPIJSON(rec, httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil))
	etag := rec.Header().Get("ETag")
	if rec.Code != http.StatusOK || etag == "" || rec.Body.Len() != len(openAPISpec) {
		t.Fatalf("status = %d etag = %q len = %d", rec.Code, etag, rec.Body.Len())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	app.OpenAPIJSON(rec, req)
	if rec.Code != http.StatusNotModified || rec.Body.Len() != 0 {
		t.Fatalf("revalidated status = %d len = %d, want 304 and empty", rec.Code, rec.Body.Len())
	}
}
