package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stagedive/deckqueue/internal/adapters/feed"
	router "github.com/stagedive/deckqueue/internal/adapters/http"
	"github.com/stagedive/deckqueue/internal/adapters/room"
	"github.com/stagedive/deckqueue/internal/app"
	"github.com/stagedive/deckqueue/internal/config"
	"github.com/stagedive/deckqueue/internal/core"
	"github.com/stagedive/deckqueue/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	roomClient := room.NewClient(cfg.RoomURL)
	if err := roomClient.Dial(ctx); err != nil {
		// No room feed means nothing to do; let the supervisor
		// restart us cold.
		log.Fatal().Err(err).Msg("room feed unavailable")
	}

	hub := feed.NewHub()

	admins := make([]domain.Identity, 0, len(cfg.Admins))
	for _, a := range cfg.Admins {
		admins = append(admins, domain.Identity(a))
	}
	engine := core.NewEngine(core.Policy{
		RoomLabel:          cfg.RoomLabel,
		SlotCount:          cfg.SlotCount,
		StrictThreshold:    cfg.StrictThreshold,
		TurnsPerVisit:      cfg.TurnsPerVisit,
		Cooldown:           cfg.Cooldown,
		GracePeriod:        cfg.GracePeriod,
		ReservationTimeout: cfg.ReservationTimeout,
		MinPerformance:     cfg.MinPerformance,
		OccupancyTimeout:   cfg.OccupancyTimeout,
	}, roomClient, hub, admins)

	dispatcher := &app.Dispatcher{
		Engine:   engine,
		Room:     roomClient,
		Events:   roomClient.Events(),
		Shutdown: cancel,
	}

	go roomClient.Run(ctx)
	go dispatcher.Run(ctx)

	// The queue starts enabled; admins can turn it off in-room.
	engine.Enable()

	r := router.SetupRouter(cfg, hub)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("room", cfg.RoomLabel).Msg("deckqueue started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
