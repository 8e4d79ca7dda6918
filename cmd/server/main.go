package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mafianight/bot/internal/bot"
	"github.com/mafianight/bot/internal/cache"
	"github.com/mafianight/bot/internal/config"
	"github.com/mafianight/bot/internal/db"
	"github.com/mafianight/bot/internal/events"
	"github.com/mafianight/bot/internal/logger"
	"github.com/mafianight/bot/internal/metrics"
	"github.com/mafianight/bot/internal/notify"
	"github.com/mafianight/bot/internal/services"
	"github.com/mafianight/bot/internal/store"
	"github.com/mafianight/bot/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("bot stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.Database.URL, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			log.Warn("database close failed", zap.Error(err))
		}
	}()
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	var rosters cache.RosterCache = cache.NewMemory(cfg.Redis.TTL)
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, log)
		if err != nil {
			log.Warn("redis unavailable, caching rosters in process", zap.Error(err))
		} else {
			rosters = rc
			defer rc.Close()
		}
	}

	m := metrics.New(log)

	client, err := bot.NewClient(cfg.Telegram.Token, log)
	if err != nil {
		return err
	}
	username := cfg.Telegram.Username
	if username == "" {
		username = client.Username()
	}

	notifier := notify.NewDispatcher(client, cfg.Telegram.BroadcastDelay, m, log)
	st := store.New(conn)
	bus := &events.Bus{}
	games := services.NewGames(st, notifier, rosters, m, log)
	responses := services.NewResponses(st, rosters, bus, m, log)
	registry := services.NewRegistry(st, log)
	bot.SubscribeAdminNotifications(bus, notifier, cfg.Telegram.AdminID)

	dispatcher := bot.NewDispatcher(bot.Deps{
		Transport:   client,
		Notifier:    notifier,
		Games:       games,
		Responses:   responses,
		Registry:    registry,
		AdminID:     cfg.Telegram.AdminID,
		TimeSlots:   cfg.Schedule.TimeSlots,
		BotUsername: username,
		Metrics:     m,
		Log:         log,
	})
	if err := client.RegisterCommands(); err != nil {
		log.Warn("command menu not published", zap.Error(err))
	}

	scheduler, err := bot.NewScheduler(cfg.Schedule.AskAdmin, notifier, cfg.Telegram.AdminID, m, log)
	if err != nil {
		return err
	}
	scheduler.Start()

	intake := bot.NewIntake(client, dispatcher, log)
	routerDeps := web.Deps{
		DB:            sqlDB,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		BotUsername:   username,
		Log:           log,
	}

	pollDone := make(chan struct{})
	switch cfg.Telegram.Mode {
	case config.ModeWebhook:
		close(pollDone)
		routerDeps.Intake = intake
		if err := client.SetWebhook(webhookURL(cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret)); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
	default:
		if err := client.SetWebhook(""); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
		go func() {
			defer close(pollDone)
			intake.Poll(ctx, cfg.Telegram.PollTimeout)
		}()
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: web.Router(routerDeps),
	}
	srvErr := make(chan error, 1)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.Server.Addr), zap.String("mode", cfg.Telegram.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-srvErr:
		log.Error("http server failed", zap.Error(runErr))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// stop taking updates first, then drain what is already running
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	<-pollDone
	dispatcher.Shutdown()
	scheduler.Stop()
	log.Info("bot stopped")
	return runErr
}

// webhookURL carries the secret as ?secret= so the endpoint can check it.
func webhookURL(raw, secret string) string {
	if secret == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	return u.String()
}
