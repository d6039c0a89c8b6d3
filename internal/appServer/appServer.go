package appServer

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warcamp/booker/config"
	repository "github.com/warcamp/booker/internal/database/postgres"
	"github.com/warcamp/booker/internal/notifier"
	"github.com/warcamp/booker/internal/scheduler"
	"github.com/warcamp/booker/internal/service"
	"github.com/warcamp/booker/internal/transport"
	"github.com/warcamp/booker/internal/worker"

	"github.com/warcamp/booker/pkg/clock"
	"github.com/warcamp/booker/pkg/postgres"
	"github.com/warcamp/booker/pkg/queue"
	"github.com/warcamp/booker/pkg/redis"
	"github.com/warcamp/booker/pkg/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	clk, err := clock.New(cfg.App.Timezone)
	if err != nil {
		log.Fatalf("Failed to initialize clock: %v", err)
	}

	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	bookingRepo := repository.NewBookingRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	bookingService := service.NewBookingService(bookingRepo, auditRepo, clk, service.BookingLimits{
		MaxActive:       cfg.Booking.MaxActive,
		HorizonDays:     cfg.Booking.HorizonDays,
		MaxDurationDays: cfg.Booking.MaxDurationDays,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Delivery transport: Telegram when a token is configured, and a
	// Redis-backed queue in front of it when Redis is configured.
	var directSink notifier.Sink = notifier.LogSink{}
	if cfg.Telegram.BotToken != "" {
		directSink = notifier.NewTelegramSink(telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.SendTimeout))
		logrus.Info("Telegram sink initialized")
	} else {
		logrus.Warn("Telegram bot token not provided, notifications are logged only")
	}

	sink := directSink
	if cfg.Redis.Host != "" {
		redisClient := redis.NewRedisClient(&cfg.Redis)
		defer redisClient.Close()

		redisQueue, err := queue.NewRedisQueue(redisClient, queue.DefaultRedisQueueConfig())
		if err != nil {
			logrus.Errorf("Failed to initialize Redis queue: %v. Continuing with direct delivery...", err)
		} else {
			sink = notifier.NewQueueSink(redisQueue)
			consumer := notifier.NewConsumer(redisQueue, directSink)
			go func() {
				if err := consumer.Run(ctx); err != nil && err != context.Canceled {
					logrus.Errorf("Notification consumer error: %v", err)
				}
			}()
			logrus.Info("Notification consumer started")
		}
	}

	reminderScheduler := scheduler.NewReminderScheduler(
		bookingService,
		sink,
		clk,
		cfg.Reminder.ThresholdsHours,
		cfg.Reminder.PollInterval,
		cfg.Reminder.NowGrace,
	)
	go reminderScheduler.Start(ctx)
	logrus.Info("Reminder scheduler started")

	expirySweeper := worker.NewExpirySweeper(
		bookingService,
		clk,
		cfg.Worker.ExpirySweepInterval,
		cfg.Worker.LogPruneInterval,
		time.Duration(cfg.Worker.LogRetentionDays)*24*time.Hour,
	)
	go expirySweeper.Start(ctx)
	logrus.Info("Expiry sweeper started")

	bookingHandler := transport.NewBookingHandler(bookingService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(bookingHandler, cfg.Server.Timeout)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
