package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/mealtrack-api/internal/application/auth"
	"github.com/mealtrack-api/internal/application/meal"
	"github.com/mealtrack-api/internal/application/otp"
	"github.com/mealtrack-api/internal/application/user"
	"github.com/mealtrack-api/internal/config"
	"github.com/mealtrack-api/internal/transport/http/handler"
	appmiddleware "github.com/mealtrack-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otp.NewService(deps.OTPRepo, deps.UserRepo, deps.OTPExpiry)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:    deps.UserRepo,
		OTPService:  otpSvc,
		Notifier:    deps.Notifier,
		TokenIssuer: deps.JWTProvider,
	})
	userSvc := user.NewService(deps.UserRepo, deps.ObjectStore)
	mealSvc := meal.NewService(deps.MealRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	mealH := handler.NewMealHandler(mealSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/otp/confirm", authH.ConfirmOTP)
		r.With(sensitiveRL.Limit).Post("/auth/otp/resend", authH.ResendOTP)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))

			r.Get("/users/me", userH.Me)
			r.Put("/users/me", userH.UpdateMe)
			r.Post("/users/me/picture", userH.UploadPicture)

			r.Get("/meals", mealH.List)
			r.Post("/meals", mealH.Create)
			r.Get("/meals/summary", mealH.Summary)
			r.Get("/meals/{mealID}", mealH.Get)
			r.Put("/meals/{mealID}", mealH.Update)
			r.Delete("/meals/{mealID}", mealH.Delete)
		})
	})

	return r
}
