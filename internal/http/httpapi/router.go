package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"headshotpro/internal/http/handlers"
	"headshotpro/internal/metrics"
	"headshotpro/internal/middleware"
)

// Options configures the middleware stack around the handlers.
type Options struct {
	Logger        zerolog.Logger
	JWTSecret     string
	InternalToken string
	CORSOrigins   []string
	DefaultLocale string
	CountryLookup middleware.CountryLookup
	// SubmitPerMinute caps generation submissions per client IP. Zero disables the limit.
	SubmitPerMinute int
	// StaticDir, when set, is served under /static for the filesystem store.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		metrics.Instrument,
	)

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if dir := strings.TrimSpace(opts.StaticDir); dir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)
		r.Get("/styles", app.ListStyles)
		r.Post("/auth/google", app.AuthGoogle)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret))

			r.Get("/me", app.Me)

			r.Route("/generations", func(r chi.Router) {
				if opts.SubmitPerMinute > 0 {
					r.With(middleware.RateLimit(opts.SubmitPerMinute, time.Minute)).Post("/", app.CreateGeneration)
				} else {
					r.Post("/", app.CreateGeneration)
				}
				r.Get("/", app.ListGenerations)
				r.Get("/{job_id}", app.GenerationStatus)
				r.Delete("/{job_id}", app.CancelGeneration)
			})

			r.Get("/credits", app.GetCredits)
			r.Post("/credits/signup-bonus", app.SignupBonus)
			r.Get("/billing/trialer-status", app.TrialerStatus)
		})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.InternalToken(opts.InternalToken))
		r.Post("/billing/purchases", app.RecordPurchase)
	})

	return r
}
