package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Redis    RedisConfig    `yaml:"redis"`
	Logger   LoggerConfig   `yaml:"logger"`
}

type TelegramConfig struct {
	Token          string        `yaml:"token"`
	Username       string        `yaml:"username"` // bot username, used for the registration deep link
	AdminID        int64         `yaml:"admin_id"`
	Mode           string        `yaml:"mode"` // polling | webhook
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookSecret  string        `yaml:"webhook_secret"`
	PollTimeout    int           `yaml:"poll_timeout"` // seconds
	BroadcastDelay time.Duration `yaml:"broadcast_delay"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ScheduleConfig struct {
	AskAdmin  string   `yaml:"ask_admin"` // cron spec
	TimeSlots []string `yaml:"time_slots"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"` // empty keeps the roster cache in process
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
}

func defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Mode:           ModePolling,
			PollTimeout:    60,
			BroadcastDelay: 50 * time.Millisecond,
		},
		Database: DatabaseConfig{
			URL: "mafia.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Schedule: ScheduleConfig{
			AskAdmin:  "@every 24h",
			TimeSlots: []string{"19:00-19:30", "19:30-20:00"},
		},
		Redis: RedisConfig{
			TTL: 10 * time.Minute,
		},
		Logger: LoggerConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if present), then .env, then the process environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("BOT_USERNAME"); v != "" {
		cfg.Telegram.Username = strings.TrimPrefix(v, "@")
	}
	if v := os.Getenv("ADMIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ADMIN_ID: %w", err)
		}
		cfg.Telegram.AdminID = id
	}
	if v := os.Getenv("TG_MODE"); v != "" {
		cfg.Telegram.Mode = v
	}
	if v := os.Getenv("TG_WEBHOOK_URL"); v != "" {
		cfg.Telegram.WebhookURL = v
	}
	if v := os.Getenv("TG_WEBHOOK_SECRET"); v != "" {
		cfg.Telegram.WebhookSecret = v
	}
	if v := os.Getenv("BROADCAST_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BROADCAST_DELAY: %w", err)
		}
		cfg.Telegram.BroadcastDelay = d
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("ASK_ADMIN_SCHEDULE"); v != "" {
		cfg.Schedule.AskAdmin = v
	}
	if v := os.Getenv("TIME_SLOTS"); v != "" {
		var slots []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				slots = append(slots, s)
			}
		}
		cfg.Schedule.TimeSlots = slots
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	return nil
}

// Validate reports the first setting that makes the bot unable to start.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if c.Telegram.AdminID == 0 {
		return errors.New("ADMIN_ID is required")
	}
	switch c.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Telegram.WebhookURL == "" {
			return errors.New("TG_WEBHOOK_URL is required in webhook mode")
		}
	default:
		return fmt.Errorf("unknown TG_MODE %q", c.Telegram.Mode)
	}
	if len(c.Schedule.TimeSlots) == 0 {
		return errors.New("at least one time slot is required")
	}
	return nil
}
