package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pollverse/connect/authcode"
	"github.com/pollverse/connect/clients"
	"github.com/pollverse/connect/internal/config"
	"github.com/pollverse/connect/internal/storage"
	"github.com/pollverse/connect/server"
	"github.com/pollverse/connect/sessions"
	"github.com/pollverse/connect/token"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Env)
	displayAppname(cfg.AppName)

	ctx := context.Background()

	if err := storage.Migrate(ctx, cfg.DatabaseURL); err != nil {
		return err
	}
	pool, err := storage.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := newRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	registry, err := clients.NewRegistry(clients.Client{
		ID:                   cfg.ClientID,
		Name:                 cfg.ClientName,
		Secret:               cfg.ClientSecret,
		AllowedRedirectHosts: cfg.AllowedRedirectHosts,
	})
	if err != nil {
		return err
	}

	codeRepo := authcode.NewPostgresRepo(pool)
	go sweepExpiredCodes(ctx, codeRepo)

	srv, err := server.New(cfg, registry,
		codeRepo,
		token.NewPostgresRepo(pool),
		sessions.NewRedisRepo(redisClient),
		server.WithHealthCheck(pingPool(pool)),
		server.WithHealthCheck(pingRedis(redisClient)),
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: cfg.Port, Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// sweepExpiredCodes reaps authorization codes that expired without ever
// being redeemed. Redemption already deletes expired codes it trips over;
// this catches the ones nobody came back for.
func sweepExpiredCodes(ctx context.Context, codes authcode.Repo) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := codes.DeleteExpired(ctx, time.Now())
			if err != nil {
				log.Warn().Err(err).Msg("expired code sweep failed")
				continue
			}
			if deleted > 0 {
				log.Debug().Int64("deleted", deleted).Msg("swept expired authorization codes")
			}
		}
	}
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func pingPool(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

func pingRedis(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
