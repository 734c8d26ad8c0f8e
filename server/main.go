package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"huddle/internal/assist"
	"huddle/internal/config"
	"huddle/internal/discovery"
	"huddle/internal/logging"
	"huddle/internal/relay"
)

const dependencyWait = 30 * time.Second

func main() {
	if err := mainInner(); err != nil {
		log.Error().Err(err).Msg("relay exited")
		os.Exit(1)
	}
}

func mainInner() error {
	configPath := flag.String("config", "", "path to a relay config file (.toml or .yaml)")
	envFile := flag.String("env-file", ".env", "dotenv file with secrets such as GEMINI_API_KEY")
	addr := flag.String("addr", "", "listen address, overrides the config file")
	flag.Parse()

	logger := logging.ConfigureRuntime("huddle-relay")

	if err := config.LoadDotenv(*envFile); err != nil {
		return err
	}
	cfg, err := config.LoadRelay(*configPath, nil)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	broker, err := openBroker(ctx, cfg)
	if err != nil {
		return err
	}
	defer broker.Close()

	hub, err := relay.NewHub(store, broker, relay.HubOptions{
		FlushInterval: cfg.FlushInterval(),
		SweepInterval: cfg.SweepInterval(),
		Retention:     cfg.Retention(),
		SendQueue:     cfg.SendQueue,
	}, logger)
	if err != nil {
		return err
	}

	var provider assist.Provider
	if cfg.GeminiAPIKey != "" {
		provider = &assist.Gemini{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, ai assist disabled")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           relay.NewRouter(hub, provider, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg := new(sync.WaitGroup)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", cfg.Addr).Str("store", string(cfg.Store)).Msg("relay listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
			cancel()
		}
	}()

	if cfg.Announce {
		if port, err := discovery.PortOf(cfg.Addr); err != nil {
			logger.Warn().Err(err).Msg("mdns announcement skipped")
		} else if ann, err := discovery.Announce(cfg.Instance, port, logger); err != nil {
			logger.Warn().Err(err).Msg("mdns announcement failed")
		} else {
			defer ann.Shutdown()
		}
	}

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		logger.Info().Str("signal", sig.String()).Msg("signal caught")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = httpServer.Shutdown(shutdownCtx)
	wg.Wait()
	return nil
}

func openStore(ctx context.Context, cfg config.RelayConfig) (relay.Store, error) {
	logger := logging.Component("store")
	switch cfg.Store {
	case config.StoreSQLite:
		logger.Info().Str("path", cfg.SQLitePath).Msg("opening sqlite store")
		return relay.OpenSQLite(cfg.SQLitePath)
	case config.StorePostgres:
		pg, err := relay.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := relay.WaitReady(ctx, "postgres", pg.Ping, dependencyWait, logger); err != nil {
			pg.Close()
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return relay.NewMemoryStore(), nil
	}
}

func openBroker(ctx context.Context, cfg config.RelayConfig) (relay.Broker, error) {
	if cfg.RedisAddr == "" {
		return relay.NewLocalBroker(), nil
	}
	logger := logging.Component("broker")
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	if err := relay.WaitReady(ctx, "redis", ping, dependencyWait, logger); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return relay.NewRedisBroker(rdb, logger), nil
}
