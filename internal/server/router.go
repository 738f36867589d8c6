package server

import (
	"net/http"
	"time"

	"pulso-backend/internal/auth"
	"pulso-backend/internal/handlers"
	"pulso-backend/internal/mailer"
	customMiddleware "pulso-backend/internal/middleware"
	"pulso-backend/internal/reminders"
	"pulso-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const (
	AuthRateLimit  = 10
	AuthRateWindow = time.Minute
)

// Deps is everything the router needs. AuthLimiter and Timer are optional.
type Deps struct {
	Store       *repository.Store
	Issuer      *auth.Issuer
	Mailer      mailer.Sender
	Timer       *reminders.Timer
	AuthLimiter customMiddleware.FixedWindow
	Logger      *zap.Logger

	BaseURL      string
	CORSOrigins  []string
	SecureCookie bool
	// TrustProxy enables middleware.RealIP. Without it the auth rate limit
	// keys on the TCP peer, so forwarded-for headers can't dodge it.
	TrustProxy bool
	// Now overrides the clock used for reset-token expiry.
	Now func() time.Time
}

func NewRouter(d Deps) http.Handler {
	sugar := d.Logger.Sugar()
	limiter := d.AuthLimiter
	if limiter == nil {
		limiter = customMiddleware.NewMemoryWindow(AuthRateLimit, AuthRateWindow)
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	authHandler := handlers.NewAuthHandler(d.Store.Users, d.Store.ResetTokens, d.Issuer, d.Mailer, sugar, handlers.AuthOptions{
		BaseURL:      d.BaseURL,
		SecureCookie: d.SecureCookie,
		Now:          d.Now,
	})
	stateHandler := handlers.NewStateHandler(d.Store.States, d.Store.Subscriptions, sugar)
	reminderHandler := handlers.NewReminderHandler(d.Store.Reminders, d.Timer, sugar)
	premiumHandler := handlers.NewPremiumHandler(d.Store.Subscriptions, d.Store.States, sugar)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(customMiddleware.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"pulso-backend"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Public auth routes, rate limited per IP
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.RateLimit(limiter, sugar))

			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/forgot-password", authHandler.ForgotPassword)
			r.Post("/auth/reset-password", authHandler.ResetPassword)
		})
		r.Post("/auth/logout", authHandler.Logout)

		// Protected routes (JWT required)
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.JWTAuth(d.Issuer))

			r.Get("/auth/me", authHandler.Me)

			r.Get("/state", stateHandler.GetState)
			r.Put("/state", stateHandler.PutState)
			r.Post("/state/events", stateHandler.ApplyEvent)

			r.Get("/reminders", reminderHandler.List)
			r.Post("/reminders", reminderHandler.Create)
			r.Patch("/reminders/{id}", reminderHandler.Update)
			r.Delete("/reminders/{id}", reminderHandler.Delete)

			r.Get("/premium", premiumHandler.GetPremium)
			r.Post("/premium/activate", premiumHandler.Activate)
		})
	})

	return r
}
