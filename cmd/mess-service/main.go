package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/Cheertaboi/mess-coupon-service/internal/api"
	"github.com/Cheertaboi/mess-coupon-service/internal/auth"
	"github.com/Cheertaboi/mess-coupon-service/internal/config"
	"github.com/Cheertaboi/mess-coupon-service/internal/eligibility"
	"github.com/Cheertaboi/mess-coupon-service/internal/notify"
	"github.com/Cheertaboi/mess-coupon-service/internal/qr"
	"github.com/Cheertaboi/mess-coupon-service/internal/repository"
	"github.com/Cheertaboi/mess-coupon-service/internal/scheduler"
	"github.com/Cheertaboi/mess-coupon-service/internal/service"
	"github.com/Cheertaboi/mess-coupon-service/pkg/db"
	"github.com/Cheertaboi/mess-coupon-service/pkg/rabbitmq"
	"github.com/Cheertaboi/mess-coupon-service/pkg/razorpay"
)

const menuCacheTTL = 5 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	loc := cfg.Location()

	conn, err := db.NewPostgresConnection(db.PostgresConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("db connect", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, conn)
	cancel()
	if err != nil {
		logger.Error("db migrate", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	var publisher notify.Publisher = notify.LogPublisher{Logger: logger}
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.NotifyExchange, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = producer
	} else {
		logger.Warn("RABBITMQ_URL not set, events will only be logged")
	}

	var gateway service.Gateway
	if cfg.PaymentsEnabled() {
		gateway = service.NewRazorpayGateway(razorpay.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret))
	} else {
		logger.Warn("razorpay credentials not set, purchases are disabled")
	}

	sealer, err := qr.NewSealer(cfg.QRSecret)
	if err != nil {
		logger.Error("qr sealer", "error", err)
		os.Exit(1)
	}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)

	users := repository.NewUserRepo(conn)
	menuSvc := service.NewMenuService(repository.NewMenuRepo(conn), menuCacheTTL, logger)
	couponSvc := service.NewCouponService(
		repository.NewCouponRepo(conn, loc),
		repository.NewPaymentRepo(conn, loc),
		menuSvc,
		gateway,
		sealer,
		publisher,
		logger,
		service.CouponOptions{
			Eligibility:       eligibility.New(cfg.PurchaseMinElapsedDays),
			Location:          loc,
			Currency:          cfg.PaymentCurrency,
			EnforceMealWindow: cfg.EnforceMealWindow,
		},
	)
	noticeSvc := service.NewNoticeService(repository.NewNoticeRepo(conn), users, publisher, logger)
	authSvc := service.NewAuthService(users, repository.NewOTPRepo(conn), issuer, publisher, logger, cfg.OTPTTL)

	jobs := scheduler.NewJobs(couponSvc, users, publisher, logger)
	sched := scheduler.NewScheduler(jobs, logger, scheduler.Schedules{
		ExpireCoupons:  cfg.ExpireJobSchedule,
		RemindPurchase: cfg.ReminderJobSchedule,
	}, loc)
	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	handler := api.NewRouter(api.Services{
		Auth:    authSvc,
		Menu:    menuSvc,
		Coupons: couponSvc,
		Notices: noticeSvc,
		Tokens:  issuer,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logger.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown", "error", err)
		}
		<-sched.Stop().Done()
		close(idleConnsClosed)
	}()

	logger.Info("starting mess-service", "addr", srv.Addr, "timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("listen", "error", err)
		os.Exit(1)
	}

	<-idleConnsClosed
	logger.Info("server stopped")
}
