package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkarlsen/shopchat/pkg/backend"
	"github.com/mkarlsen/shopchat/pkg/bus"
	"github.com/mkarlsen/shopchat/pkg/channels"
	"github.com/mkarlsen/shopchat/pkg/config"
	"github.com/mkarlsen/shopchat/pkg/connectors"
	"github.com/mkarlsen/shopchat/pkg/dialog"
	"github.com/mkarlsen/shopchat/pkg/gateway"
	"github.com/mkarlsen/shopchat/pkg/intent"
	"github.com/mkarlsen/shopchat/pkg/logger"
	"github.com/mkarlsen/shopchat/pkg/providers"
	"github.com/mkarlsen/shopchat/pkg/session"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "shopchat"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	fmt.Printf("  Go: %s\n", goVer)
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getConfigPath() string {
	if p := os.Getenv("SHOPCHAT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "shopchat.json"
	}
	return filepath.Join(home, ".shopchat", "config.json")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = getConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// buildEngine assembles the dialog engine and its collaborators from config.
func buildEngine(cfg *config.Config) (*dialog.Engine, *session.Manager, error) {
	store, err := buildSessionStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second
	sessions := session.NewManager(store, ttl)

	timeout := time.Duration(cfg.Services.TimeoutSeconds) * time.Second
	orders := connectors.NewOrdersClient(cfg.Services.OrdersURL, timeout)
	products := connectors.NewProductsClient(cfg.Services.ProductsURL, timeout)
	analytics := connectors.NewAnalyticsClient(cfg.Services.AnalyticsURL, timeout)

	assistant := providers.NewClient(cfg.Providers.Perplexity)
	resolver := intent.NewResolver(intent.NewLexicalScorer(), cfg.Intent.Threshold, assistant)

	engine := dialog.NewEngine(sessions, resolver, orders, products, analytics, assistant)
	return engine, sessions, nil
}

func buildSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.Session.Redis.Addr == "" {
		logger.InfoC("main", "Using in-memory session store")
		return session.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Session.Redis.Addr,
		Password: cfg.Session.Redis.Password,
		DB:       cfg.Session.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.InfoCF("main", "Using Redis session store", map[string]interface{}{
		"addr": cfg.Session.Redis.Addr,
	})
	ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second
	return session.NewRedisStore(client, ttl), nil
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	engine, sessions, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.RunSweeper(ctx, cfg.Session.SweepSchedule)

	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	manager, err := channels.NewManager(cfg, messageBus, engine)
	if err != nil {
		return err
	}
	if err := manager.StartAll(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := manager.StopAll(stopCtx); err != nil {
			logger.WarnCF("main", "Channel shutdown error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	server := gateway.NewServer(cfg.Gateway, engine)
	server.SetChannelStatus(manager.GetStatus)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.InfoC("main", "Shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	return server.Shutdown(context.Background())
}

func runBackend(configPath, dataset, dbPath, addr string) error {
	if _, err := loadConfig(configPath); err != nil {
		return err
	}

	store, err := backend.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dataset != "" {
		if _, err := store.LoadCSV(ctx, dataset); err != nil {
			return err
		}
	}

	server := backend.NewServer(store, addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.InfoC("main", "Shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	return server.Shutdown(context.Background())
}
