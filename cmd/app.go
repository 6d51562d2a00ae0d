package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/qrave1/ArenaChat/internal/application/config"
	"github.com/qrave1/ArenaChat/internal/application/constant"
	"github.com/qrave1/ArenaChat/internal/application/metric"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/memory"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres"
	"github.com/qrave1/ArenaChat/internal/infra/adapters/postgres/repository"
	"github.com/qrave1/ArenaChat/internal/infra/ports/http/handlers"
	"github.com/qrave1/ArenaChat/internal/infra/ports/http/server"
	"github.com/qrave1/ArenaChat/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelInfo},
			),
		),
	)

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	slog.Info("Running app", slog.Bool("debug", cfg.Debug))

	dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		slog.Error("connect to postgres", slog.Any(constant.Error, err))
		os.Exit(1)
	}
	defer dbConn.Close()

	messageRepo := repository.NewMessageRepo(dbConn)
	voteRepo := repository.NewVoteRepo(dbConn)
	roomRepo := repository.NewRoomRepo(dbConn)

	connRegistry := memory.NewConnectionRegistry()
	roomRegistry := memory.NewRoomRegistry()
	restrictionRepo := memory.NewRestrictionRepository()
	pollRepo := memory.NewPollRepository()

	roomUsecase := usecase.NewRoomUsecase(
		cfg,
		roomRegistry,
		restrictionRepo,
		roomRepo,
		messageRepo,
		usecase.NewAllowAllAuthorizer(),
		usecase.NewBlocklistPolicy(cfg.Chat.BlockedWords),
		usecase.NewSlowModePolicy(),
	)
	pollUsecase := usecase.NewPollUsecase(roomUsecase, pollRepo, voteRepo)
	roomUsecase.SetPollReader(pollUsecase)
	moderationUsecase := usecase.NewModerationUsecase(roomUsecase, roomRegistry, restrictionRepo, messageRepo)

	roomHandler := handlers.NewRoomHandler(roomUsecase, pollUsecase)
	wsHandler := handlers.NewWebSocketHandler(cfg, connRegistry, roomUsecase, moderationUsecase, pollUsecase)

	echoSrv := server.New(cfg, roomHandler, wsHandler)

	metricsSrv := metric.NewServer()

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	go func() {
		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	case err := <-metricsSrvCh:
		slog.Error(
			"Metrics server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}
