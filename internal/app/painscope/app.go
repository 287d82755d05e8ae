package painscope

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/painscope/internal/cache"
	"github.com/magabrotheeeer/painscope/internal/config"
	"github.com/magabrotheeeer/painscope/internal/lib/jwt"
	"github.com/magabrotheeeer/painscope/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	"github.com/magabrotheeeer/painscope/internal/migrations"
	"github.com/magabrotheeeer/painscope/internal/researchclient"
	agentjobservice "github.com/magabrotheeeer/painscope/internal/services/agentjob"
	authservice "github.com/magabrotheeeer/painscope/internal/services/auth"
	briefingservice "github.com/magabrotheeeer/painscope/internal/services/briefing"
	painservice "github.com/magabrotheeeer/painscope/internal/services/pain"
	paymentservice "github.com/magabrotheeeer/painscope/internal/services/payment"
	profileservice "github.com/magabrotheeeer/painscope/internal/services/profile"
	reportservice "github.com/magabrotheeeer/painscope/internal/services/report"
	researchservice "github.com/magabrotheeeer/painscope/internal/services/research"
	settingsservice "github.com/magabrotheeeer/painscope/internal/services/settings"
	"github.com/magabrotheeeer/painscope/internal/storage/repository"
	"github.com/magabrotheeeer/painscope/internal/stripeclient"
)

type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
	amqpCh   *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	// Брокер уведомлений не обязателен для работы API: без него сервис
	// поднимается, но письма о готовых отчётах не рассылаются.
	var amqpConn *amqp.Connection
	var amqpCh *amqp.Channel
	var publisher researchservice.NotificationPublisher
	if cfg.RabbitMQ.ConnectionString != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitMQ.ConnectionString, cfg.RabbitMQ.ConnectRetries, cfg.RabbitMQ.ConnectDelay)
		if err != nil {
			logger.Warn("rabbitmq is unavailable, notifications disabled", sl.Err(err))
		} else {
			amqpCh, err = rabbitmq.SetupChannel(amqpConn, rabbitmq.GetNotificationQueues())
			if err != nil {
				return nil, err
			}
			publisher = &rabbitmq.Publisher{Ch: amqpCh}
		}
	}

	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	stripeClient := stripeclient.NewClient(cfg.Stripe.SecretKey)
	researchClient := researchclient.NewClient(cfg.Research.WebhookURL, cfg.Research.Timeout)

	authService := authservice.NewAuthService(db, cacheRedis, jwtMaker, publisher, logger)
	paymentService := paymentservice.New(db, stripeClient, cfg.Stripe, cfg.SiteURL, logger)
	agentJobService := agentjobservice.NewAgentJobService(db, logger)
	researchService := researchservice.NewResearchService(db, researchClient, publisher,
		func() researchservice.JobWatcher { return agentJobService.NewWatcher(2 * time.Second) },
		logger)
	briefingService := briefingservice.NewBriefingService(db, researchService, logger)
	reportService := reportservice.NewReportService(db, logger)
	painService := painservice.NewPainService(db, logger)
	settingsService := settingsservice.NewSettingsService(db, cacheRedis, logger)
	profileService := profileservice.NewProfileService(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:     authService,
		Payment:  paymentService,
		Briefing: briefingService,
		Report:   reportService,
		Pain:     painService,
		Settings: settingsService,
		Profile:  profileService,
		AgentJob: agentJobService,
		Storage:  db,
	}, cfg.Stripe.WebhookSecret)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.Research.Timeout + cfg.TimeoutHTTP, // запуск исследования ждёт ответа конвейера
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
		amqpCh:   amqpCh,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.amqpCh != nil {
			if closeErr := a.amqpCh.Close(); closeErr != nil {
				a.logger.Error("failed to close amqp channel", sl.Err(closeErr))
			}
		}
		if a.amqpConn != nil {
			if closeErr := a.amqpConn.Close(); closeErr != nil {
				a.logger.Error("failed to close amqp connection", sl.Err(closeErr))
			}
		}
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", sl.Err(closeErr))
		}
		return err
	}
}
