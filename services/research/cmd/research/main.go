package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"researchduo/internal/metrics"
	"researchduo/internal/ratelimit"
	"researchduo/internal/util"
	"researchduo/pkg/ai"
	"researchduo/pkg/store"
	"researchduo/services/research/internal/app"
	"researchduo/services/research/internal/config"
	"researchduo/services/research/internal/server"
)

const (
	defaultAuthPerMinute       = 10
	defaultGenerationPerMinute = 20
	defaultGenerationTimeout   = 120 * time.Second
	shutdownTimeout            = 15 * time.Second
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	sameSite, err := config.ParseSameSite(cfg.SessionCookieSameSite)
	if err != nil {
		log.Fatalf("failed to parse cookie SameSite: %v", err)
	}
	genTimeout, err := config.ParseGenerationTimeout(cfg.Generation.Timeout)
	if err != nil {
		log.Fatalf("failed to parse generation timeout: %v", err)
	}

	logger := util.InitLogger("research", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			util.Fatal("redis ping failed", "addr", cfg.RedisAddr, "err", err)
		}
	}

	st, err := openStore(cfg)
	if err != nil {
		util.Fatal("failed to open store", "driver", cfg.StoreDriver, "err", err)
	}
	sessions, err := openSessions(cfg, rdb, sessionTTL)
	if err != nil {
		util.Fatal("failed to init sessions", "strategy", cfg.SessionStrategy, "err", err)
	}

	m := metrics.New()
	gen, err := ai.NewTextGenerator(ctx, ai.GeneratorConfig{
		Provider: cfg.Generation.Provider,
		BaseURL:  cfg.Generation.BaseURL,
		APIKey:   cfg.Generation.APIKey,
		Model:    cfg.Generation.Model,
		Timeout:  genTimeout,
	})
	if err != nil {
		util.Fatal("failed to init generator", "provider", cfg.Generation.Provider, "err", err)
	}
	agents := ai.NewAgents(gen, func(role ai.Role, elapsed time.Duration, err error) {
		m.ObserveGeneration(string(role), elapsed, err)
	})

	appCore, err := app.New(app.Config{
		Store:     st,
		Sessions:  sessions,
		Generator: agents,
		Metrics:   m,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	authLimiter, err := newLimiter(rdb, "researchduo:ratelimit:auth", orDefault(cfg.AuthRateLimitPerMinute, defaultAuthPerMinute))
	if err != nil {
		util.Fatal("failed to init auth limiter", "err", err)
	}
	genLimiter, err := newLimiter(rdb, "researchduo:ratelimit:generation", orDefault(cfg.GenerationRateLimitPerMinute, defaultGenerationPerMinute))
	if err != nil {
		util.Fatal("failed to init generation limiter", "err", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal("invalid trusted proxy list", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:               appCore,
		Metrics:           m,
		AuthLimiter:       authLimiter,
		GenerationLimiter: genLimiter,
		TrustedProxies:    trusted,
		AllowedOrigins:    cfg.AllowedOrigins,
		CookieName:        cfg.SessionCookieName,
		CookieSecure:      cfg.SessionCookieSecure,
		CookieSameSite:    sameSite,
		SessionTTL:        sessionTTL,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	// Generation handlers block on the provider, so writes must outlive it.
	writeTimeout := genTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultGenerationTimeout
	}
	writeTimeout += 30 * time.Second
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr, "store", cfg.StoreDriver, "sessions", cfg.SessionStrategy, "provider", cfg.Generation.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
	slog.Info("server stopped")
}

func openStore(cfg config.FileConfig) (store.Store, error) {
	if cfg.StoreDriver == "memory" {
		slog.Warn("using in-memory store; records are lost on restart")
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(cfg.DatabaseURL)
}

func openSessions(cfg config.FileConfig, rdb *redis.Client, ttl time.Duration) (store.SessionStore, error) {
	if cfg.SessionStrategy == "redis" {
		return store.NewRedisSessionStore(rdb, "researchduo:session", ttl), nil
	}
	var revoker store.TokenRevoker = store.NewMemoryTokenRevoker()
	if rdb != nil {
		revoker = store.NewRedisTokenRevoker(rdb, "researchduo:revoked")
	}
	return store.NewJWTSessionStore(cfg.SessionSecret, ttl, revoker, store.JWTOptions{})
}

func newLimiter(rdb *redis.Client, prefix string, perMinute int) (ratelimit.Limiter, error) {
	if rdb == nil {
		return ratelimit.NewMemoryLimiter(perMinute, time.Minute)
	}
	return ratelimit.NewRedisFixedWindowLimiter(rdb, prefix, perMinute, time.Minute)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
