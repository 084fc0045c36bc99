package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-checkers/internal/checkers"
	appcfg "github.com/park285/cheese-checkers/internal/config"
	"github.com/park285/cheese-checkers/internal/httpapi"
	"github.com/park285/cheese-checkers/internal/lobby"
	"github.com/park285/cheese-checkers/internal/msgcat"
	"github.com/park285/cheese-checkers/internal/obslog"
	"github.com/park285/cheese-checkers/internal/pvpcheckers"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	matches, err := pvpcheckers.NewManager(cfg.RedisURL,
		pvpcheckers.WithRules(checkers.Rules{PromoteKings: cfg.PromoteKings}),
		pvpcheckers.WithTTL(cfg.MatchTTL),
	)
	if err != nil {
		logger.Fatal("match_manager_init", zap.Error(err))
	}
	defer func() { _ = matches.Close() }()

	srvOpts := []httpapi.Option{httpapi.WithRoomFilter(cfg.RoomAllowed)}
	// 결과 보관은 DATABASE_URL이 있을 때만
	if cfg.DatabaseURL != "" {
		repo, err := pvpcheckers.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("repository_init", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = repo.EnsureSchema(ctx)
		cancel()
		if err != nil {
			logger.Fatal("repository_schema", zap.Error(err))
		}
		matches.AttachRepository(repo)
		srvOpts = append(srvOpts, httpapi.WithRepository(repo))
	}

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("message_catalog_init", zap.Error(err))
	}

	api := httpapi.New(matches, lobby.NewManager(matches.Client(), matches), msgs, srvOpts...)
	server := &fasthttp.Server{
		Handler:      api.Handler(),
		Name:         "cheese-checkers",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.Bool("promote_kings", cfg.PromoteKings))
		if err := server.ListenAndServe(cfg.HTTPAddr); err != nil {
			logger.Fatal("http_serve", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("http_shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.ShutdownWithContext(ctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
}
