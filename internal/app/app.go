// Package app boots the admin API server.
package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/swordfighters/admin-api/internal/challenge"
	"github.com/swordfighters/admin-api/internal/config"
	"github.com/swordfighters/admin-api/internal/credentials"
	"github.com/swordfighters/admin-api/internal/db"
	adminapi "github.com/swordfighters/admin-api/internal/http/api/admin"
	"github.com/swordfighters/admin-api/internal/passkey"
	"github.com/swordfighters/admin-api/internal/security"
	"github.com/swordfighters/admin-api/internal/session"
	"github.com/swordfighters/admin-api/internal/settings"
	"gopkg.in/natefinch/lumberjack.v2"
)

// shutdownTimeout bounds graceful drain on exit.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	dsn, err := config.LoadDatabaseDSN(cfg.ConfigPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the admin API server with database-backed components.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	fileCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}
	setupLogging(fileCfg.Log)

	conn, err := db.Open(fileCfg.Database)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		log.WithError(errRefresh).Warn("load settings overrides failed, using config defaults")
	}

	sessionStore, errStore := buildSessionStore(ctx, fileCfg.Redis)
	if errStore != nil {
		return errStore
	}
	sessions := session.NewManager(conn, sessionStore, fileCfg.Session)

	webAuthn, errWebAuthn := security.NewWebAuthn(fileCfg.WebAuthn)
	if errWebAuthn != nil {
		return errWebAuthn
	}

	challengeStore := challenge.NewStore(conn)
	janitor := challenge.NewJanitor(challengeStore)
	janitor.Start(ctx)

	svc := passkey.NewService(conn, challengeStore, credentials.NewRegistry(conn), security.NewVerifier(webAuthn), sessions, janitor)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	adminapi.RegisterAdminRoutes(engine, conn, svc, sessions)

	server := &http.Server{
		Addr:              fileCfg.Listen,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("server shutdown failed")
		}
	}()

	log.Infof("admin api listening on %s", fileCfg.Listen)
	if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		return errServe
	}
	return nil
}

// buildSessionStore selects the redis-backed store when a redis URL is
// configured, falling back to the in-process store for single-node deploys.
func buildSessionStore(ctx context.Context, redisURL string) (session.Store, error) {
	if redisURL == "" {
		log.Info("redis not configured, using in-memory session store")
		return session.NewMemoryStore(), nil
	}
	opts, errParse := redis.ParseURL(redisURL)
	if errParse != nil {
		return nil, errParse
	}
	client := redis.NewClient(opts)
	if errPing := client.Ping(ctx).Err(); errPing != nil {
		return nil, errPing
	}
	return session.NewRedisStore(client), nil
}

// setupLogging configures log level and optional rotating file output.
func setupLogging(cfg config.LogConfig) {
	if level, errParse := log.ParseLevel(cfg.Level); errParse == nil {
		log.SetLevel(level)
	}
	if cfg.File == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
}
