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

	"ucontents-console/internal/audit"
	"ucontents-console/internal/auth"
	"ucontents-console/internal/config"
	"ucontents-console/internal/connect"
	"ucontents-console/internal/httpapi"
	"ucontents-console/internal/notify"
	"ucontents-console/internal/platform"
	"ucontents-console/internal/session"
	"ucontents-console/internal/settings"
	"ucontents-console/pkg/logger"
	"ucontents-console/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	cookies, err := auth.NewManager(cfg.Cookie)
	if err != nil {
		log.Error("cookie manager init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	api := platform.NewClient(cfg.Platform.BaseURL, cfg.Platform.Timeout)
	tokens := session.NewRedisTokenStore(rdb, cfg.Cookie.TTL)
	sessions := session.NewManager(tokens, api, log)

	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	settingsSvc := settings.NewService(api, rdb, cfg.Platform.SettingsTTL, log)
	notifySvc := notify.NewService(api, rdb, sessions, cfg.Notify.PollInterval, log)

	if err := notifySvc.Start(); err != nil {
		log.Error("notification poller init failed", "err", err)
		os.Exit(1)
	}
	defer notifySvc.Stop()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Sessions:    sessions,
		Cookies:     cookies,
		Settings:    settingsSvc,
		Notify:      notifySvc,
		Audit:       auditSvc,
		Redis:       rdb,
		CookieCfg:   cfg.Cookie,
		ThrottleCfg: cfg.Throttle,
	}
	oauth := connect.NewHandlers(sessions, cookies, api, auditSvc, cfg.Cookie.Name, cfg.Cookie.TTL, cfg.Cookie.Secure)

	registerRoutes(r, h, oauth, sessions, cookies, cfg.Cookie.Name)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("console gateway listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
