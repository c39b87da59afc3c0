package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/api"
	"github.com/C4T-BuT-S4D/slotwarden/internal/config"
	"github.com/C4T-BuT-S4D/slotwarden/internal/logging"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
)

// Read-only status server. It shares the database with the bot but never talks to Telegram.
func main() {
	setupConfig()
	logging.Init("api")

	cfg := config.New()
	if cfg.PostgresDSN == "" {
		logrus.Fatal("postgres_dsn is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, time.Minute)
	defer initCancel()

	db, err := storage.Open(initCtx, postgres.Open(cfg.PostgresDSN), cfg.DBConnectAttempts)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	store := storage.New(db)
	if err := store.Migrate(initCtx); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	api.NewService(store, slots.NewResolver(store, cfg.Location())).Register(e)

	go func() {
		if err := e.Start(cfg.APIListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Status api stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Failed to shut down status api: %v", err)
	}
}

func setupConfig() {
	viper.SetDefault("api_listen", ":8081")
	config.SetupCommon()
}
