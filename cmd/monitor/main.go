package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lobbywatch/internal/auth"
	"lobbywatch/internal/betting"
	"lobbywatch/internal/config"
	cronrunner "lobbywatch/internal/cron"
	"lobbywatch/internal/db"
	"lobbywatch/internal/handler"
	"lobbywatch/internal/history"
	"lobbywatch/internal/logger"
	"lobbywatch/internal/monitor"
	gormrepository "lobbywatch/internal/repository/gorm"
)

func main() {
	cfgPath := os.Getenv("LW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("LW_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm, auth.NewTokenCipherFromEnv())
	historyStore := history.NewStore()
	subs := monitor.NewSubscribers(cfg.Feed.SendTimeout, logger)

	lobbyMonitor := monitor.New(monitor.Options{
		Feed:   cfg.Feed,
		Streak: cfg.Streak,
		Repo:   store,
		Store:  historyStore,
		Subs:   subs,
		Logger: logger,
	})
	betExecutor := betting.New(betting.Options{
		Feed:       cfg.Feed,
		Betting:    cfg.Betting,
		Prediction: cfg.Prediction,
		Repo:       store,
		Store:      historyStore,
		Subs:       subs,
		Logger:     logger,
	})

	tokenAuth := auth.JWT{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(writeLogMiddleware(logger))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	statusHandler := &handler.StatusHandler{
		Version: cfg.App.Version,
		Monitor: lobbyMonitor,
		Betting: betExecutor,
	}
	statusHandler.Register(engine)

	authed := engine.Group("", auth.Middleware(tokenAuth))
	admin := engine.Group("", auth.Middleware(tokenAuth), auth.AdminOnly())

	authHandler := &handler.AuthHandler{
		Repo:          store,
		JWT:           tokenAuth,
		AdminUsername: cfg.Auth.AdminUsername,
		AdminPassword: cfg.Auth.AdminPassword,
		Logger:        logger,
	}
	authHandler.Register(engine, authed)
	usersHandler := &handler.UsersHandler{Repo: store, Monitor: lobbyMonitor, Betting: betExecutor}
	usersHandler.Register(admin)
	lobbyHandler := &handler.LobbyHandler{Repo: store, Monitor: lobbyMonitor}
	lobbyHandler.Register(authed)
	bettingHandler := &handler.BettingHandler{Executor: betExecutor}
	bettingHandler.Register(authed)
	utilsHandler := &handler.UtilsHandler{FeedHost: cfg.Feed.Host}
	utilsHandler.Register(authed)
	wsHandler := &handler.WSHandler{Monitor: lobbyMonitor, Betting: betExecutor, Logger: logger}
	wsHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if err := cronrunner.RegisterMaintenanceJobs(cronRunner, store, cfg.Retention, logger); err != nil {
		logger.Warn("cron register maintenance jobs failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	lobbyMonitor.StopAll(shutdownCtx)
	betExecutor.StopAll(shutdownCtx)
	_ = srv.Shutdown(shutdownCtx)
}

// writeLogMiddleware logs every mutating API call with its status and
// duration. Reads are left out to keep the log usable under polling clients.
func writeLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		method := c.Request.Method
		if !strings.HasPrefix(path, "/api/") {
			return
		}
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case status >= 500:
			logger.Error("api write", fields...)
		case status >= 400:
			logger.Warn("api write", fields...)
		default:
			logger.Info("api write", fields...)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
