package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"satpam/internal/attendance"
	"satpam/internal/auth"
	"satpam/internal/cloudinary"
	"satpam/internal/config"
	"satpam/internal/evidence"
	"satpam/internal/faceclient"
	"satpam/internal/handler"
	"satpam/internal/httpmiddleware"
	"satpam/internal/location"
	"satpam/internal/logger"
	"satpam/internal/metrics"
	"satpam/internal/personnel"
	"satpam/internal/queue"
	"satpam/internal/roster"
	"satpam/internal/schedule"
	"satpam/internal/store"
	"satpam/internal/supabase"
)

func main() {
	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := config.Load()

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "satpam-api")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if err := cfg.Validate(); err != nil {
		logg.Fatal("invalid configuration", zap.Error(err))
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logg); err != nil {
		logg.Fatal("http server failed", zap.Error(err))
	}
}

func run(cfg config.App, logg *zap.Logger) error {
	ctx := context.Background()

	db, err := store.NewDB(ctx, cfg.DatabaseURL, store.PoolOptions{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: cfg.DBMaxLifetime,
	})
	if db == nil {
		return err
	}
	if err != nil {
		logg.Warn("database not reachable, starting degraded", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	personRepo := personnel.NewRepository(db.Client)
	locationRepo := location.NewRepository(db.Client)
	scheduleRepo := schedule.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// Single-process mode: selfie checks run inside the API.
		mem := queue.NewInMemory(64)
		checker := attendance.NewSelfieChecker(attendanceRepo, faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip), logg)
		workerCtx, stopWorker := context.WithCancel(ctx)
		defer stopWorker()
		go func() { _ = checker.Run(workerCtx, mem) }()
		q = mem
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey, logg)
	}

	planner := schedule.NewService(scheduleRepo, locationRepo, personRepo, logg)
	h := handler.New(handler.Deps{
		People:     personRepo,
		Locations:  locationRepo,
		Schedules:  scheduleRepo,
		Planner:    planner,
		Importer:   roster.NewImporter(personRepo, planner, logg),
		Attendance: attendance.NewService(attendanceRepo, locationRepo, q, logg),
		Evidence:   newEvidence(cfg, logg),
		Health: func(ctx context.Context) map[string]bool {
			return map[string]bool{
				"db":    db.Healthy(ctx),
				"redis": redisClient.Healthy(ctx),
			}
		},
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logg)
	if err := handler.RegisterValidators(); err != nil {
		return err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logg, "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       24 * time.Hour,
	}))
	r.Use(securityHeaders())
	r.Use(metrics.GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := httpmiddleware.NewFallback(
		httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin),
		httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		logg,
	)
	r.Use(httpmiddleware.RateLimit(limiter))

	h.Register(r, auth.Auth(cfg.JWTSigningKey, cfg.JWTIssuer))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("starting server", zap.String("addr", srv.Addr), zap.String("evidence", cfg.EvidenceBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	logg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Warn("server forced shutdown", zap.Error(err))
	}
	logg.Info("server exited")
	return nil
}

// newEvidence picks the configured photo storage backend.
func newEvidence(cfg config.App, logg *zap.Logger) *evidence.Service {
	if cfg.EvidenceBackend == config.EvidenceSupabase {
		backend := supabase.NewStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket, cfg.SupabasePrefix, logg)
		return evidence.NewService(backend, config.EvidenceSupabase, cfg.MaxUploadBytes, logg)
	}
	backend := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	return evidence.NewService(backend, config.EvidenceCloudinary, cfg.MaxUploadBytes, logg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
