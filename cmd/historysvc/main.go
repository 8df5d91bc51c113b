// historysvc keeps per-user search history in redis. Every route is
// scoped to the authenticated principal, so nothing here is public.
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

	"canteen-platform/internal/config"
	"canteen-platform/internal/guard"
	"canteen-platform/internal/history"
	"canteen-platform/internal/httpapi"
	"canteen-platform/internal/policy"
	"canteen-platform/internal/token"
	"canteen-platform/pkg/logger"
	"canteen-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// A custom POLICY_FILE must carry its own /healthz rule or the probe
// gets a 401.
var defaultPolicy = []policy.Rule{
	{Pattern: "/healthz", Require: policy.RequirePublic},
	{Pattern: "/v1/history/*", Require: policy.RequireAuthenticated},
	{Pattern: "/v1/history", Require: policy.RequireAuthenticated},
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := cfg.RequireRedis(); err != nil {
		slog.Error("config invalid", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	codec, err := token.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		log.Error("codec init failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	tbl, err := loadPolicy(cfg)
	if err != nil {
		log.Error("policy load failed", "err", err)
		os.Exit(1)
	}

	h := httpapi.Handlers{History: history.NewRedisStore(rdb)}
	g := guard.NewGuard(codec, policy.PublicPaths(cfg.PublicPathList()), cfg.Edge.Secret, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(g.Middleware())
	r.Use(policy.Middleware(tbl))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	v1 := r.Group("/v1")
	{
		v1.POST("/history/searches", h.RecordSearch)
		v1.GET("/history/searches", h.RecentSearches)
		v1.DELETE("/history/searches", h.ClearSearches)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("historysvc listening", "addr", srv.Addr, "env", cfg.App.Env)
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

func loadPolicy(cfg config.Config) (*policy.Table, error) {
	if cfg.Policy.File != "" {
		return policy.Load(cfg.Policy.File)
	}
	return policy.NewTable(defaultPolicy)
}
