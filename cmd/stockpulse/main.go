package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"StockPulse/internal/cache"
	"StockPulse/internal/collector"
	"StockPulse/internal/config"
	"StockPulse/internal/history"
	"StockPulse/internal/logger"
	"StockPulse/internal/metrics"
	"StockPulse/internal/notifier"
	"StockPulse/internal/recorder"
	"StockPulse/internal/retry"
	"StockPulse/internal/scheduler"
	"StockPulse/internal/strategy"
)

func main() {
	mode := flag.String("mode", "run", "run | backfill | daemon")
	flag.Parse()

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logCloser, err := logger.Setup(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("setup logger")
	}
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			log.Fatal().Strs("missing", missing.Fields).Msg("required configuration absent")
		}
		log.Fatal().Err(err).Msg("config validation")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("timezone")
	}
	opts, err := scheduler.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("session boundaries")
	}
	log.Info().Str("mode", *mode).Int("symbols", len(cfg.Symbols)).Msg("StockPulse starting")

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()

	// Price providers and chain
	finmind := collector.NewFinMindFetcher(cfg.FinMind.BaseURL, cfg.FinMind.Token, cfg.Proxy, cfg.FinMind.Timeout, loc)
	yahoo := collector.NewYahooFetcher(cfg.Yahoo.BaseURL, cfg.Yahoo.Suffix, cfg.Proxy, loc)
	tiers, err := collector.ParseTiers(cfg.Source.Tiers, map[string]collector.Provider{
		finmind.Name(): finmind,
		yahoo.Name():   yahoo,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("source tiers")
	}
	chain := &collector.Chain{
		Tiers:        tiers,
		Retries:      cfg.Source.Retries,
		LookbackDays: cfg.Source.LookbackDays,
		Location:     loc,
		Now:          time.Now,
	}
	quoteCache, closeCache := buildCache(cfg)
	defer closeCache.Close()
	col := collector.NewCollector(chain, finmind, quoteCache, cfg.Cache.TTL)

	// History store
	table, closeTable := buildTable(ctx, cfg)
	defer closeTable.Close()
	policy := retry.Policy{
		Attempts:     cfg.Store.RateLimit.Attempts,
		InitialDelay: cfg.Store.RateLimit.InitialDelay,
		MaxDelay:     cfg.Store.RateLimit.MaxDelay,
	}
	store := history.NewStore(table, policy, m, loc)

	advisor, err := strategy.New(cfg.Advisory.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("advisory mode")
	}

	// Notifiers
	pusher := &notifier.Multi{Metrics: m}
	pusher.Notifiers = append(pusher.Notifiers, notifier.NewLineNotifier(cfg.Line.ChannelToken, cfg.Line.UserID, cfg.Proxy))
	if cfg.Discord.WebhookURL != "" {
		pusher.Notifiers = append(pusher.Notifiers, notifier.NewDiscordNotifier(cfg.Discord.WebhookURL, cfg.Proxy))
	}
	if cfg.Telegram.BotToken != "" {
		pusher.Notifiers = append(pusher.Notifiers, notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy))
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Recorder.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	runner := &scheduler.Runner{
		Symbols:  cfg.Symbols,
		Source:   col,
		Store:    store,
		Advisor:  advisor,
		Pusher:   pusher,
		Recorder: rec,
		Metrics:  m,
		Location: loc,
		Now:      time.Now,
		Opts:     opts,
	}

	switch *mode {
	case "run":
		outcome := runner.RunOnce(ctx)
		log.Info().Str("outcome", string(outcome)).Msg("run complete")
	case "backfill":
		runner.Backfill(ctx)
	case "daemon":
		runDaemon(ctx, cfg, runner, func(scheduler.Outcome) { pushMetrics(m, cfg) })
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown mode")
	}

	pushMetrics(m, cfg)
}

func pushMetrics(m *metrics.Recorder, cfg *config.Config) {
	if err := m.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		log.Warn().Err(err).Msg("metrics push failed")
	}
}

func runDaemon(ctx context.Context, cfg *config.Config, runner *scheduler.Runner, afterRun func(scheduler.Outcome)) {
	sched := scheduler.NewScheduler(ctx, runner)
	sched.AfterRun = afterRun
	if err := sched.RegisterAll(cfg.Schedule.Cron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing a run now")
		go sched.RunNow()
	}

	log.Info().Msg("StockPulse is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping...")
}

func buildCache(cfg *config.Config) (cache.BytesCache, io.Closer) {
	if cfg.Cache.RedisAddr == "" {
		return cache.NewTTLCache(), nopCloser{}
	}
	log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("using redis cache")
	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		Prefix:   "stockpulse:",
	})
	return rc, rc
}

func buildTable(ctx context.Context, cfg *config.Config) (history.Table, io.Closer) {
	if cfg.Store.Backend == "sqlite" {
		t, err := history.NewSQLiteTable(cfg.Store.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("open sqlite history store")
		}
		return t, t
	}
	t, err := history.NewSheetsTable(ctx, cfg.Store.Credentials, cfg.Store.SheetID, cfg.Store.SheetName)
	if err != nil {
		log.Fatal().Err(err).Msg("connect google sheets")
	}
	return t, nopCloser{}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
