package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bitepath/internal/app"
	"bitepath/internal/config"
	"bitepath/internal/database"
	"bitepath/internal/logging"
	"bitepath/internal/metrics"
	"bitepath/internal/planner"
	"bitepath/internal/storage"
	"bitepath/internal/telegram"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		logging.New(logging.Config{}).Fatal("Failed to load config", zap.Error(err))
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	defer log.Sync()

	if err := cfg.RequireTelegram(); err != nil {
		log.Fatal("Telegram is not configured", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 2. Initialize Infrastructure
	db, err := database.NewDB(cfg.DatabasePath, log.Named("database"))
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	kv, err := storage.NewFileStore(cfg.StateDir, log.Named("storage"))
	if err != nil {
		log.Fatal("Failed to initialize state store", zap.Error(err))
	}
	if err := kv.Watch(ctx); err != nil {
		log.Fatal("Failed to watch state store", zap.Error(err))
	}

	m := metrics.New()

	// 3. Initialize Services
	application := app.NewApp(
		planner.NewPlanRepository(db.SQL),
		planner.NewProfileRepository(db.SQL),
		kv,
		app.Options{UnitSystem: cfg.UnitSystem, Recorder: m, Logger: log.Named("app")},
	)
	defer application.Close()

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, application, log.Named("telegram"))
	if err != nil {
		log.Fatal("Failed to initialize Telegram Bot", zap.Error(err))
	}

	// 5. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux, m.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Telegram Bot Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}
