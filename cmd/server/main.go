package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arnabBaruah009/sms-nucleus/internal/auth"
	"github.com/arnabBaruah009/sms-nucleus/internal/config"
	"github.com/arnabBaruah009/sms-nucleus/internal/db"
	internalhttp "github.com/arnabBaruah009/sms-nucleus/internal/http"
	"github.com/arnabBaruah009/sms-nucleus/internal/jobs"
	"github.com/arnabBaruah009/sms-nucleus/internal/ratelimit"
	"github.com/arnabBaruah009/sms-nucleus/internal/repository"
	"github.com/arnabBaruah009/sms-nucleus/internal/session"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("jwt setup failed: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("db migration failed: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}()
	}

	store := repository.NewStore(pool)
	sessions := session.NewManager(store, store, issuer)
	limiter := ratelimit.NewLoginLimiter(redisClient, cfg.LoginRateLimit, cfg.LoginRateWindow)
	server := internalhttp.NewServer(cfg, store, sessions, limiter)

	jobs.StartSessionPurgeJob(ctx, cfg, store)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("sms-nucleus listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
