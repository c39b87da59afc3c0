package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/C4T-BuT-S4D/slotwarden/internal/api"
	"github.com/C4T-BuT-S4D/slotwarden/internal/chat"
	"github.com/C4T-BuT-S4D/slotwarden/internal/config"
	"github.com/C4T-BuT-S4D/slotwarden/internal/delay"
	"github.com/C4T-BuT-S4D/slotwarden/internal/engine"
	"github.com/C4T-BuT-S4D/slotwarden/internal/filestore"
	"github.com/C4T-BuT-S4D/slotwarden/internal/lifecycle"
	"github.com/C4T-BuT-S4D/slotwarden/internal/logging"
	"github.com/C4T-BuT-S4D/slotwarden/internal/models"
	"github.com/C4T-BuT-S4D/slotwarden/internal/moderation"
	"github.com/C4T-BuT-S4D/slotwarden/internal/monitor"
	"github.com/C4T-BuT-S4D/slotwarden/internal/slots"
	"github.com/C4T-BuT-S4D/slotwarden/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/telebot.v4"
	"gorm.io/driver/postgres"
)

func main() {
	setupConfig()
	logging.Init("bot")

	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
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
	if err := store.AddBannedWords(initCtx, models.GlobalGroupID, moderation.DefaultWords); err != nil {
		logrus.Fatalf("Failed to seed banned words: %v", err)
	}

	lastUpdateID, err := store.LastUpdateID(initCtx)
	if err != nil {
		logrus.Fatalf("Failed to load last update id: %v", err)
	}

	bot, err := telebot.NewBot(telebot.Settings{
		URL:         cfg.TelegramAPIURL,
		Token:       cfg.TelegramToken,
		Synchronous: true,
		Poller: &telebot.LongPoller{
			Timeout:      10 * time.Second,
			LastUpdateID: lastUpdateID,
			AllowedUpdates: []string{
				"message",
				"callback_query",
				"chat_member",
				"my_chat_member",
			},
		},
		OnError: func(err error, _ telebot.Context) {
			logrus.Errorf("Bot error: %v", err)
		},
	})
	if err != nil {
		logrus.Fatalf("Failed to create bot: %v", err)
	}

	loc := cfg.Location()
	resolver := slots.NewResolver(store, loc)
	messenger := chat.New(bot, cfg.SendRetries)
	media := filestore.NewDownloader(filestore.New(cfg.StoragePath, loc), bot, cfg.TelegramAPIURL, cfg.TelegramToken)
	tasks := delay.NewScheduler(ctx, cfg.BotHandleTimeout)

	eng := engine.New(cfg, store, resolver, messenger, media, tasks)
	mon := monitor.New(cfg, store, eng)

	for _, updateType := range []string{
		telebot.OnText,
		telebot.OnPhoto,
		telebot.OnVideo,
		telebot.OnAnimation,
		telebot.OnDocument,
		telebot.OnSticker,
		telebot.OnVoice,
		telebot.OnVideoNote,
		telebot.OnUserJoined,
		telebot.OnUserLeft,
		telebot.OnChatMember,
		telebot.OnMyChatMember,
		telebot.OnCallback,
	} {
		bot.Handle(updateType, mon.HandleAnyUpdate)
	}

	runner, err := lifecycle.NewRunner(cfg, lifecycle.New(cfg, store, resolver, messenger, eng))
	if err != nil {
		logrus.Fatalf("Failed to create sweep runner: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.NewService(store, resolver).Register(e)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		bot.Start()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Infof("status api listening on %s", cfg.APIListen)
		if err := e.Start(cfg.APIListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("Status api stopped: %v", err)
		}
	}()

	<-ctx.Done()

	bot.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Failed to shut down status api: %v", err)
	}

	logrus.Info("waiting for services to finish")
	wg.Wait()
	tasks.Stop()
}

func setupConfig() {
	viper.SetDefault("bot_handle_timeout", "10s")
	config.SetupCommon()
}
