package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/koepon-app/koepon-backend/api/controllers"
	webhookcontrollers "github.com/koepon-app/koepon-backend/api/controllers/webhooks"
	"github.com/koepon-app/koepon-backend/api/middleware"
	authsvc "github.com/koepon-app/koepon-backend/internal/auth"
	exchangesvc "github.com/koepon-app/koepon-backend/internal/exchange"
	gachasvc "github.com/koepon-app/koepon-backend/internal/gacha"
	medalsvc "github.com/koepon-app/koepon-backend/internal/medals"
	paymentsvc "github.com/koepon-app/koepon-backend/internal/payments"
	probabilitysvc "github.com/koepon-app/koepon-backend/internal/probability"
	stripewebhook "github.com/koepon-app/koepon-backend/internal/webhooks/stripe"
	"github.com/koepon-app/koepon-backend/pkg/auth/session"
	"github.com/koepon-app/koepon-backend/pkg/config"
	"github.com/koepon-app/koepon-backend/pkg/db"
	"github.com/koepon-app/koepon-backend/pkg/logger"
	"github.com/koepon-app/koepon-backend/pkg/redis"
	pkgstripe "github.com/koepon-app/koepon-backend/pkg/stripe"
)

// RouterParams groups everything the HTTP surface needs. cmd/api builds one
// after wiring the services.
type RouterParams struct {
	Config             *config.Config
	Logger             *logger.Logger
	DB                 db.Pinger
	Redis              *redis.Client
	Sessions           session.SessionChecker
	AuthService        authsvc.Service
	GachaService       gachasvc.Service
	PaymentService     paymentsvc.Service
	MedalService       medalsvc.Service
	ExchangeService    exchangesvc.Service
	ProbabilityService probabilitysvc.Service
	StripeClient       *pkgstripe.Client
	WebhookService     *stripewebhook.Service
	WebhookGuard       *stripewebhook.IdempotencyGuard
	Metrics            prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.WebhookService, p.StripeClient, p.WebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(p.Redis, cfg.Gacha.DrawIdempotencyTTL, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.Register(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.Login(p.AuthService, logg))
		r.Post("/refresh", controllers.Refresh(p.AuthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Post("/logout", controllers.Logout(p.AuthService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.Idempotency(p.Redis, cfg.Gacha.DrawIdempotencyTTL, logg))

		r.Route("/gachas", func(r chi.Router) {
			r.Get("/", controllers.ListGachas(p.GachaService, logg))
			r.Get("/{gachaId}", controllers.GetGacha(p.GachaService, logg))
			r.Post("/{gachaId}/payment", controllers.CreateDrawPayment(p.PaymentService, logg))
			r.Post("/{gachaId}/draw", controllers.ExecuteDraw(p.GachaService, logg))
		})
		r.Get("/draws", controllers.ListDraws(p.GachaService, logg))

		r.Route("/medals", func(r chi.Router) {
			r.Get("/balance", controllers.GetMedalBalance(p.MedalService, logg))
			r.Post("/exchange", controllers.ExchangeMedals(p.MedalService, logg))
			r.Get("/transactions", controllers.ListMedalTransactions(p.MedalService, logg))
		})
		r.Get("/exchange/items", controllers.ListExchangeItems(p.ExchangeService, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Get("/gachas/{gachaId}/probabilities", controllers.GetProbabilities(p.ProbabilityService, logg))
			r.Put("/gachas/{gachaId}/probabilities", controllers.PutProbabilities(p.ProbabilityService, logg))
			r.Get("/stats", controllers.AdminStats(p.GachaService, logg))
		})
	})

	return r
}
