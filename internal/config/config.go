package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramAPIURL string `mapstructure:"telegram_api_url"`
	PostgresDSN    string `mapstructure:"postgres_dsn"`
	Timezone       string `mapstructure:"timezone"`

	BotHandleTimeout    time.Duration `mapstructure:"bot_handle_timeout"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	NoticeTTL           time.Duration `mapstructure:"notice_ttl"`
	ButtonLockTTL       time.Duration `mapstructure:"button_lock_ttl"`
	SlotTickInterval    time.Duration `mapstructure:"slot_tick_interval"`
	ReminderBeforeEnd   time.Duration `mapstructure:"reminder_before_end"`
	SendRetries         int           `mapstructure:"send_retries"`
	DBConnectAttempts   int           `mapstructure:"db_connect_attempts"`

	StoragePath string `mapstructure:"storage_path"`
	APIListen   string `mapstructure:"api_listen"`

	InactivityDays        int `mapstructure:"inactivity_days"`
	OutsideSlotPenalty    int `mapstructure:"outside_slot_penalty"`
	BannedWordPenalty     int `mapstructure:"banned_word_penalty"`
	InactivityPenalty     int `mapstructure:"inactivity_penalty"`
	ZeroActivityPenalty   int `mapstructure:"zero_activity_penalty"`
	BannedWordLimit       int `mapstructure:"banned_word_limit"`
	KickCongratsThreshold int `mapstructure:"kick_congrats_threshold"`

	InactivityCron   string `mapstructure:"inactivity_cron"`
	LowScoreCron     string `mapstructure:"low_score_cron"`
	DayCycleCron     string `mapstructure:"day_cycle_cron"`
	LeaderboardCron  string `mapstructure:"leaderboard_cron"`
	ZeroActivityCron string `mapstructure:"zero_activity_cron"`
	AdminSyncCron    string `mapstructure:"admin_sync_cron"`
}

func New() *Config {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		logrus.Fatalf("unmarshalling config: %v", err)
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("telegram_token is required"))
	}
	if c.PostgresDSN == "" {
		errs = append(errs, errors.New("postgres_dsn is required"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}
	if c.ConfirmationTimeout <= 0 {
		errs = append(errs, errors.New("confirmation_timeout must be positive"))
	}
	if c.SlotTickInterval <= 0 {
		errs = append(errs, errors.New("slot_tick_interval must be positive"))
	}
	return errors.Join(errs...)
}

// Location returns the timezone slot times are written in. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func SetupCommon() {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	viper.SetDefault("telegram_api_url", "https://api.telegram.org")
	viper.SetDefault("timezone", "Asia/Kolkata")
	viper.SetDefault("bot_handle_timeout", "10s")
	viper.SetDefault("confirmation_timeout", "15s")
	viper.SetDefault("notice_ttl", "10s")
	viper.SetDefault("button_lock_ttl", "5s")
	viper.SetDefault("slot_tick_interval", "60s")
	viper.SetDefault("reminder_before_end", "15m")
	viper.SetDefault("send_retries", 2)
	viper.SetDefault("db_connect_attempts", 5)
	viper.SetDefault("storage_path", "storage")
	viper.SetDefault("api_listen", ":8080")
	viper.SetDefault("log_colors", true)

	viper.SetDefault("inactivity_days", 3)
	viper.SetDefault("outside_slot_penalty", 5)
	viper.SetDefault("banned_word_penalty", 10)
	viper.SetDefault("inactivity_penalty", 20)
	viper.SetDefault("zero_activity_penalty", 10)
	viper.SetDefault("banned_word_limit", 2)
	viper.SetDefault("kick_congrats_threshold", 100)

	viper.SetDefault("inactivity_cron", "0 10 * * *")
	viper.SetDefault("low_score_cron", "45 23 * * *")
	viper.SetDefault("day_cycle_cron", "0 4 * * *")
	viper.SetDefault("leaderboard_cron", "15 22 * * *")
	viper.SetDefault("zero_activity_cron", "30 22 * * *")
	viper.SetDefault("admin_sync_cron", "@hourly")

	viper.SetEnvPrefix("SLOTWARDEN")

	viper.MustBindEnv("telegram_token")
	viper.MustBindEnv("postgres_dsn")
	viper.AutomaticEnv()
}
