package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	api "github.com/mind-engage/mindengage-assess/internal/api/http"
	"github.com/mind-engage/mindengage-assess/internal/assessment"
	auth "github.com/mind-engage/mindengage-assess/internal/auth/middleware"
	"github.com/mind-engage/mindengage-assess/internal/config"
	"github.com/mind-engage/mindengage-assess/internal/db"
	"github.com/mind-engage/mindengage-assess/internal/grading"
	"github.com/mind-engage/mindengage-assess/internal/logger"
	"github.com/mind-engage/mindengage-assess/internal/metrics"
	"github.com/mind-engage/mindengage-assess/internal/performance"
	"github.com/mind-engage/mindengage-assess/internal/ratelimit"
	"github.com/mind-engage/mindengage-assess/internal/session"
	syncx "github.com/mind-engage/mindengage-assess/internal/sync"
)

const driverMemory = "memory"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger not built yet
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.LogFile)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	// --- Store ---
	deps := api.Deps{}
	var store assessment.Store
	if cfg.DBDriver == driverMemory {
		store = assessment.NewInMemoryStore()
	} else {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		cancel()
		if err != nil {
			log.Fatal("db open failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
		}
		defer dbh.Close()
		events := syncx.NewEventRepo(dbh, cfg.SiteID)
		store = assessment.NewSQLStore(dbh, cfg.DBDriver, events)
		deps.Events = events
		deps.DB = dbh
	}

	// --- Grading, aggregation, sessions ---
	grader, err := grading.NewGrader(cfg.GraderOptions()...)
	if err != nil {
		log.Fatal("grading bands", zap.Error(err))
	}
	svcOpts := []assessment.ServiceOption{assessment.WithLogger(log.Named("assessment"))}
	aggOpts := []performance.Option{performance.WithLogger(log.Named("performance"))}
	sessOpts := []session.Option{
		session.WithLogger(log.Named("session")),
		session.WithTick(cfg.SessionTick),
		session.WithTTL(cfg.SessionTTL),
	}
	if m != nil {
		svcOpts = append(svcOpts, assessment.WithObserver(m))
		aggOpts = append(aggOpts, performance.WithObserver(m))
		sessOpts = append(sessOpts, session.WithObserver(m))
		deps.Metrics = m.Handler()
	}
	svcOpts = append(svcOpts, assessment.WithAggregatorOptions(aggOpts...))
	svc := assessment.NewService(store, grader, svcOpts...)
	sessions := session.NewManager(svc, svc, sessOpts...)
	go sessions.Run(ctx)

	// --- Guest limiter ---
	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rl, closeRedis, err := ratelimit.NewRedis(ctx, cfg.RedisAddr, cfg.GuestLimit, cfg.GuestWindow)
		if err != nil {
			log.Fatal("redis limiter", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer func() { _ = closeRedis() }()
		limiter = rl
	} else {
		ml := ratelimit.NewMemory(cfg.GuestLimit, cfg.GuestWindow)
		go ml.Run(ctx)
		limiter = ml
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logger.Requests(log.Named("http")), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(m.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Respondent-ID"},
		ExposedHeaders:   []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	deps.Service = svc
	deps.Sessions = sessions
	deps.Auth = auth.NewAuthService(cfg.AuthHMACSecret)
	deps.Login = auth.LoginConfig{
		AdminUser:       cfg.AdminUser,
		AdminPassHash:   cfg.AdminPassHash,
		EnableLocalAuth: cfg.EnableLocalAuth,
	}
	deps.Guard = &api.GuestGuard{Limiter: limiter, Log: log.Named("ratelimit")}
	deps.SecureCookies = cfg.Mode == config.ModeOnline
	api.Mount(r, deps)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("mode", string(cfg.Mode)),
		zap.String("db", cfg.DBDriver),
		zap.Bool("redis", cfg.RedisAddr != ""))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", zap.Error(err))
	}
}
