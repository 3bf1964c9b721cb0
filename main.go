package main

import (
	"context"
	"os"

	"github.com/campuslabs/roomreserve/config"
	"github.com/campuslabs/roomreserve/internal/auth"
	"github.com/campuslabs/roomreserve/internal/clock"
	"github.com/campuslabs/roomreserve/internal/consumer"
	"github.com/campuslabs/roomreserve/internal/handler"
	"github.com/campuslabs/roomreserve/internal/mailer"
	appMw "github.com/campuslabs/roomreserve/internal/middleware"
	"github.com/campuslabs/roomreserve/internal/metrics"
	"github.com/campuslabs/roomreserve/internal/notifier"
	"github.com/campuslabs/roomreserve/internal/repository"
	"github.com/campuslabs/roomreserve/internal/service"
	"github.com/campuslabs/roomreserve/pkg/database"
	"github.com/campuslabs/roomreserve/pkg/rabbitmq"
	"github.com/campuslabs/roomreserve/pkg/validator"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	db := database.NewPostgresDB(cfg.DSN())
	clk := clock.New()

	// Notification pipeline: service publishes, the mail worker consumes
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to RabbitMQ consumer")
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start consuming")
	}

	mail := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, logger)
	consumer.NewMailConsumer(mail, logger).Start(msgs)

	// Metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Repositories
	reservationRepo := repository.NewReservationRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	notif := notifier.NewAMQPNotifier(publisher)
	reservationSvc := service.NewReservationService(reservationRepo, roomRepo, notif, clk, collector, logger)
	defer reservationSvc.Shutdown()
	availabilitySvc := service.NewAvailabilityService(reservationRepo, roomRepo, clk)

	// Timers do not survive restarts; rebuild them from storage
	if err := reservationSvc.RestoreTimers(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("failed to restore reservation timers")
	}

	sessions := auth.NewSessionStore()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = appMw.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	e.Use(appMw.Session(sessions))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "roomreserve"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handler.NewAuthHandler(userRepo, sessions, auth.BcryptVerifier{}).RegisterRoutes(e)
	handler.NewRoomHandler(availabilitySvc, reservationSvc, clk).RegisterRoutes(e)
	handler.NewReservationHandler(reservationSvc, clk).RegisterRoutes(e)

	logger.Info().Str("port", cfg.ServerPort).Msg("RoomReserve starting")
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
