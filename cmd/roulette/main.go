package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	mrand "math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/time/rate"

	"github.com/totegamma/roulette/internal/config"
	"github.com/totegamma/roulette/internal/infra/database"
	"github.com/totegamma/roulette/internal/infra/gateway"
	"github.com/totegamma/roulette/internal/present/rest"
	restmiddleware "github.com/totegamma/roulette/internal/present/rest/middleware"
	"github.com/totegamma/roulette/internal/service"
	"github.com/totegamma/roulette/internal/telemetry"
	"github.com/totegamma/roulette/internal/usecase"
)

const (
	serviceName    = "roulette"
	version        = "0.1.0"
	commandTimeout = 2 * time.Minute
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx := context.Background()

	shutdownTrace, err := telemetry.Setup(ctx, serviceName, version, cfg.Server.EnableTrace, cfg.Server.TraceEndpoint)
	if err != nil {
		slog.Error("failed to set up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var events usecase.EventPublisher
	if cfg.Server.RedisAddr != "" {
		rdb, err := database.NewRedis(ctx, cfg.Server.RedisAddr, cfg.Server.RedisPassword, cfg.Server.RedisDB)
		if err != nil {
			slog.Error("failed to connect redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer rdb.Close()
		events = service.NewSignalService(rdb, cfg.Server.EventChannel)
	}

	presenceRate := rate.Inf
	if cfg.Slack.PresenceRate > 0 {
		presenceRate = rate.Limit(cfg.Slack.PresenceRate)
	}
	slackGateway := gateway.NewSlackGateway(gateway.SlackOptions{
		BotToken:      cfg.Slack.BotToken,
		APIURL:        cfg.Slack.APIURL,
		PresenceRate:  presenceRate,
		PresenceBurst: cfg.Slack.PresenceBurst,
		Timeout:       cfg.Roulette.CallTimeout,
	})

	tokens, err := gateway.NewTokenSource(cfg.Zoom.APIKey, cfg.Zoom.APISecret, cfg.Zoom.TokenLifetime, time.Now)
	if err != nil {
		slog.Error("failed to create meeting token", slog.String("error", err.Error()))
		os.Exit(1)
	}
	zoomGateway := gateway.NewZoomGateway(cfg.Zoom.BaseURL, tokens, cfg.Roulette.CallTimeout)

	directory := usecase.NewDirectoryCache(
		usecase.NewDirectory(slackGateway, usecase.DirectoryOptions{
			Excluded:          cfg.Roulette.ExcludedAccounts,
			Contacts:          cfg.Roulette.Contacts,
			ContactDomain:     cfg.Roulette.ContactDomain,
			IncludeRestricted: cfg.Roulette.IncludeRestricted,
		}),
		cfg.Roulette.DirectoryRefresh,
	)
	if directory.Warm(ctx) == 0 {
		slog.Warn("directory is empty, commands will retry the fetch")
	}

	var seed [32]byte
	_, _ = rand.Read(seed[:])
	sampler := usecase.NewSampler(slackGateway, mrand.New(mrand.NewChaCha8(seed)))

	notifier := usecase.NewNotifier(slackGateway, cfg.Roulette.CallTimeout)
	dispatcher := usecase.NewDispatcher(zoomGateway, notifier, cfg.Roulette.Topic, cfg.Roulette.CallTimeout, cfg.Roulette.DispatchLimit)
	roulette := usecase.NewRoulette(
		directory,
		slackGateway,
		sampler,
		dispatcher,
		slackGateway,
		events,
		usecase.RouletteOptions{MaxGroupSize: cfg.Roulette.MaxGroupSize},
	)

	handler := rest.NewHandler(roulette, directory, commandTimeout)
	signature := restmiddleware.NewSignatureMiddleware(cfg.Slack.SigningSecret)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(serviceName))
	handler.RegisterRoutes(e, signature.VerifySlack)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("listening", slog.String("addr", server.Addr))
		if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}
	if err := handler.Wait(shutdownCtx); err != nil {
		slog.Warn("commands still running at exit", slog.String("error", err.Error()))
	}
	if err := shutdownTrace(shutdownCtx); err != nil {
		slog.Error("failed to flush traces", slog.String("error", err.Error()))
	}
}
