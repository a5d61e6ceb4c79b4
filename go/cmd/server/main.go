package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mkessler/typerace/go/internal/config"
	"github.com/mkessler/typerace/go/internal/gateway"
	"github.com/mkessler/typerace/go/internal/room"
	"github.com/mkessler/typerace/go/internal/scoreboard"
	"github.com/mkessler/typerace/go/internal/session"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	clock := clockwork.NewRealClock()

	// Scoreboard, optionally backed by SQLite.
	var board *scoreboard.Scoreboard
	if cfg.ScoreboardDB != "" {
		store, err := scoreboard.OpenStore(cfg.ScoreboardDB)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.ScoreboardDB).Msg("failed to open scoreboard store")
		}
		defer store.Close()

		board, err = scoreboard.NewWithStore(cfg.MaxScores, store)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load persisted scores")
		}
		log.Info().Str("path", cfg.ScoreboardDB).Msg("scoreboard persistence enabled")
	} else {
		board = scoreboard.New(cfg.MaxScores)
	}

	rooms := room.NewStore(clock, room.Options{
		Countdown:  cfg.Countdown(),
		MaxPlayers: cfg.MaxRoomPlayers,
	})

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	sessions := session.NewManager(rooms, board, cm, clock, session.Config{
		MaxBatchChars:   cfg.MaxBatchChars,
		MinCharInterval: cfg.MinCharInterval(),
	})
	cm.SetHandler(sessions)

	handler := gateway.NewHandler(cm, board, sessions, clock)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: h2c.NewHandler(c.Handler(mux), &http2.Server{}),
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go cm.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("typing-race server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
