package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/udefuse/backend/internal/game"
	"github.com/udefuse/backend/internal/server"
	"github.com/udefuse/backend/internal/store"
)

const startupTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	dburl := os.Getenv("DATABASE_URL")
	if dburl == "" {
		logger.Error("DATABASE_URL is not set")
		os.Exit(1)
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dburl)
	if err != nil {
		logger.Error("connect database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool, logger)
	if err := st.Ping(ctx); err != nil {
		logger.Error("ping database", "err", err)
		os.Exit(1)
	}
	if err := st.Migrate(ctx); err != nil {
		logger.Error("run migrations", "err", err)
		os.Exit(1)
	}
	if err := st.SeedQuestions(ctx, store.DefaultQuestions()); err != nil {
		logger.Error("seed questions", "err", err)
		os.Exit(1)
	}

	registry := game.NewRegistry(logger)
	hub := game.NewHub(st, registry, logger)
	srv := server.New(hub, st, logger)

	logger.Info("listening", "port", port)
	if err := http.ListenAndServe(":"+port, srv.RegisterRoutes()); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}
