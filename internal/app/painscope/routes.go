// Package painscope предоставляет маршруты и сборку основного приложения.
package painscope

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/painscope/internal/http/handlers/agent/status"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/auth/otplogin"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/auth/otprequest"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/auth/resetconfirm"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/auth/resetrequest"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/auth/verifyemail"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/billing/checkoutcreate"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/billing/stripewebhook"
	briefinganswer "github.com/magabrotheeeer/painscope/internal/http/handlers/briefing/answer"
	briefingread "github.com/magabrotheeeer/painscope/internal/http/handlers/briefing/read"
	briefingsubmit "github.com/magabrotheeeer/painscope/internal/http/handlers/briefing/submit"
	briefingupdate "github.com/magabrotheeeer/painscope/internal/http/handlers/briefing/update"
	"github.com/magabrotheeeer/painscope/internal/http/handlers/health"
	painlist "github.com/magabrotheeeer/painscope/internal/http/handlers/pain/list"
	painread "github.com/magabrotheeeer/painscope/internal/http/handlers/pain/read"
	profileread "github.com/magabrotheeeer/painscope/internal/http/handlers/profile/read"
	profileupdate "github.com/magabrotheeeer/painscope/internal/http/handlers/profile/update"
	reportlist "github.com/magabrotheeeer/painscope/internal/http/handlers/report/list"
	reportlistall "github.com/magabrotheeeer/painscope/internal/http/handlers/report/listall"
	settingsread "github.com/magabrotheeeer/painscope/internal/http/handlers/settings/read"
	settingsupdate "github.com/magabrotheeeer/painscope/internal/http/handlers/settings/update"
	"github.com/magabrotheeeer/painscope/internal/http/middlewarectx"
	agentjobservice "github.com/magabrotheeeer/painscope/internal/services/agentjob"
	authservice "github.com/magabrotheeeer/painscope/internal/services/auth"
	briefingservice "github.com/magabrotheeeer/painscope/internal/services/briefing"
	painservice "github.com/magabrotheeeer/painscope/internal/services/pain"
	paymentservice "github.com/magabrotheeeer/painscope/internal/services/payment"
	profileservice "github.com/magabrotheeeer/painscope/internal/services/profile"
	reportservice "github.com/magabrotheeeer/painscope/internal/services/report"
	settingsservice "github.com/magabrotheeeer/painscope/internal/services/settings"
	"github.com/magabrotheeeer/painscope/internal/storage/repository"
)

// Services собирает сервисы приложения для регистрации маршрутов.
type Services struct {
	Auth     *authservice.AuthService
	Payment  *paymentservice.PaymentService
	Briefing *briefingservice.BriefingService
	Report   *reportservice.ReportService
	Pain     *painservice.PainService
	Settings *settingsservice.SettingsService
	Profile  *profileservice.ProfileService
	AgentJob *agentjobservice.AgentJobService
	Storage  *repository.Storage
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services, webhookSecret string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/verify-email", verifyemail.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/otp/request", otprequest.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/otp/login", otplogin.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/password-reset/request", resetrequest.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/password-reset/confirm", resetconfirm.New(logger, s.Auth).ServeHTTP)

		// Webhook endpoint (без аутентификации, с проверкой подписи)
		r.Post("/billing/webhook", stripewebhook.New(logger, s.Payment, webhookSecret).ServeHTTP)

		r.Get("/health", health.New(logger, s.Storage).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/briefings/answer", briefinganswer.New(logger, s.Briefing).ServeHTTP)
			r.Get("/briefings/{id}", briefingread.New(logger, s.Briefing).ServeHTTP)
			r.Put("/briefings/{id}", briefingupdate.New(logger, s.Briefing).ServeHTTP)
			r.Post("/briefings/{id}/submit", briefingsubmit.New(logger, s.Briefing).ServeHTTP)

			r.Get("/reports", reportlist.New(logger, s.Report).ServeHTTP)
			r.Get("/pains", painlist.New(logger, s.Pain).ServeHTTP)
			r.Get("/pains/{id}", painread.New(logger, s.Pain).ServeHTTP)
			r.Get("/agent/jobs/latest", status.New(logger, s.AgentJob).ServeHTTP)

			r.Get("/settings", settingsread.New(logger, s.Settings).ServeHTTP)
			r.Put("/settings", settingsupdate.New(logger, s.Settings).ServeHTTP)
			r.Get("/profile", profileread.New(logger, s.Profile).ServeHTTP)
			r.Put("/profile", profileupdate.New(logger, s.Profile).ServeHTTP)

			r.Post("/billing/checkout", checkoutcreate.New(logger, s.Payment).ServeHTTP)

			// Административные конечные точки
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnlyMiddleware(logger))
				r.Get("/admin/reports", reportlistall.New(logger, s.Report).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
