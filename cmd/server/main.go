package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"megasena/internal/auth"
	"megasena/internal/db"
	"megasena/internal/handlers"
	"megasena/internal/lottery"
	"megasena/internal/notify"
	"megasena/internal/store"
)

func main() {
	// 0. Load Config (Envars)
	_ = godotenv.Load() // Load .env file if exists

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	// 1. Init Database (Turso when configured, local sqlite otherwise)
	conn, err := db.Open(os.Getenv("TURSO_DATABASE_URL"), os.Getenv("TURSO_AUTH_TOKEN"), os.Getenv("DATABASE_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init database")
	}
	defer conn.Close()
	log.Info().Msg("database initialized")

	st := store.NewSQLStore(conn)

	// 2. Init Telegram Bot (optional)
	notifier, err := notify.NewTelegram(os.Getenv("TELEGRAM_TOKEN"), log)
	if err != nil {
		log.Warn().Err(err).Msg("failed to init telegram bot, notifications disabled")
		notifier, _ = notify.NewTelegram("", log)
	}

	// 3. Services
	authSvc := auth.NewService(st, secret, 24*time.Hour, log)
	if err := authSvc.EnsureAdmin(context.Background(), os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin account")
	}

	lotterySvc := lottery.NewService(st, lottery.CryptoSource{}, log).WithNotifier(notifier)

	// 4. Setup Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	handlers.New(lotterySvc, authSvc, log).Routes(r)

	// 5. Start
	log.Info().Str("port", port).Msg("server listening")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
