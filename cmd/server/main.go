// Command portal-server runs the Student Activity Portal REST API.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/checkin"
	"github.com/Nguyentram30/activity-portal/internal/config"
	"github.com/Nguyentram30/activity-portal/internal/jobs"
	"github.com/Nguyentram30/activity-portal/internal/limiter"
	"github.com/Nguyentram30/activity-portal/internal/migrate"
	"github.com/Nguyentram30/activity-portal/internal/repository/postgres"
	"github.com/Nguyentram30/activity-portal/internal/server/httpserver"
	"github.com/Nguyentram30/activity-portal/internal/server/probe"
	"github.com/Nguyentram30/activity-portal/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadServer()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	// Flags override the environment.
	flag.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.DatabaseURL, "dsn", cfg.DatabaseURL, "PostgreSQL DSN")
	flag.StringVar(&cfg.JWTSecret, "jwt-key", cfg.JWTSecret, "HS256 signing key")
	flag.DurationVar(&cfg.AccessTTL, "access-ttl", cfg.AccessTTL, "access token TTL")
	flag.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address (optional)")
	flag.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "directory for uploaded files")
	flag.StringVar(&cfg.GRPCHealthAddr, "health-addr", cfg.GRPCHealthAddr, "gRPC health listen address (optional)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Server, logger *zap.Logger) error {
	if err := migrate.Up(ctx, cfg.DatabaseURL, logger); err != nil {
		return err
	}
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)
	activityRepo := postgres.NewActivityRepo(db)
	regRepo := postgres.NewRegistrationRepo(db)
	feedbackRepo := postgres.NewFeedbackRepo(db)
	notifRepo := postgres.NewNotificationRepo(db)
	docRepo := postgres.NewDocumentRepo(db)
	settingsRepo := postgres.NewSettingsRepo(db)
	reportRepo := postgres.NewReportRepo(db)
	logRepo := postgres.NewLogRepo(db)

	policy := limiter.Policy{Window: cfg.LimiterWindow, MaxFails: cfg.LimiterMaxFails, BlockFor: cfg.LimiterBlockFor}
	var (
		lim   limiter.Limiter = limiter.NewPG(db.Pool, policy)
		codes checkin.Store   = checkin.NewMemory()
		rdb   *redis.Client
	)
	checks := []probe.Check{{Name: "postgres", Ping: db.Ping}}
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = rdb.Close() }()
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			return err
		}
		lim = limiter.NewRedis(rdb, policy)
		codes = checkin.NewRedis(rdb)
		checks = append(checks, probe.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
		logger.Info("redis enabled", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("redis not configured: sign-in limits in postgres, check-in codes in memory")
	}

	files, err := service.NewDiskStore(cfg.UploadDir, cfg.FilesURL(), cfg.MaxUploadBytes)
	if err != nil {
		return err
	}

	// Services
	settingsSvc := service.NewSettingsService(settingsRepo, logRepo, logger)
	authSvc := service.NewAuthService(userRepo, sessionRepo, []byte(cfg.JWTSecret), cfg.AccessTTL, cfg.RefreshTTL, lim,
		service.WithFeatures(settingsSvc))
	activitySvc := service.NewActivityService(activityRepo, regRepo, feedbackRepo, logRepo, settingsSvc, logger)
	notifSvc := service.NewNotificationService(notifRepo, activityRepo, logRepo, logger)
	svcs := httpserver.Services{
		Auth:          authSvc,
		Activities:    activitySvc,
		Users:         service.NewUserService(userRepo, sessionRepo, activityRepo, logRepo, logger),
		Notifications: notifSvc,
		Documents:     service.NewDocumentService(docRepo, files, logRepo, logger),
		Reports:       service.NewReportService(reportRepo, activityRepo, regRepo, settingsRepo),
		Settings:      settingsSvc,
		CheckIn: service.NewCheckInService(activityRepo, regRepo, codes, settingsSvc,
			cfg.PublicURL, cfg.QRTTL, logRepo, logger),
		Logs: service.NewLogService(logRepo),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	api := httpserver.New(svcs, httpserver.Options{
		FilesDir:       files.Dir(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		CookieSecure:   cfg.CookieSecure,
		AllowedOrigins: cfg.AllowedOrigins,
		Throttle:       httpserver.ThrottleConfig{StudentRPM: cfg.StudentRPM, StaffRPM: cfg.StaffRPM},
		Registry:       reg,
		Ready:          db.Ping,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	sched := jobs.NewScheduler(logger)
	if err := sched.Add(cfg.NotifySchedule, jobs.NewNotificationDispatcher(notifSvc, logger)); err != nil {
		return err
	}
	sched.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	var health *probe.Server
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			return err
		}
		health = probe.New(logger, checks...)
		g.Go(func() error { return health.Serve(lis) })
		g.Go(func() error {
			health.Run(gctx, 15*time.Second)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		sched.Stop(shutdownCtx)
		if health != nil {
			health.Stop(5 * time.Second)
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
