package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/taylorsk/volatility-analysis/internal/collector"
	"github.com/taylorsk/volatility-analysis/internal/config"
	"github.com/taylorsk/volatility-analysis/internal/notifier"
	"github.com/taylorsk/volatility-analysis/internal/pipeline"
	"github.com/taylorsk/volatility-analysis/internal/recorder"
	"github.com/taylorsk/volatility-analysis/internal/render"
	"github.com/taylorsk/volatility-analysis/internal/saver"
	"github.com/taylorsk/volatility-analysis/internal/scheduler"
	"github.com/taylorsk/volatility-analysis/internal/selector"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	os.Exit(run())
}

// run wires and starts the analyzer and returns the process exit code. Returning
// instead of exiting lets deferred cleanup close the recorder.
func run() int {
	log.Println("[INFO] volsentinel starting...")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("[FATAL] load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[FATAL] config validation: %v", err)
		return 1
	}

	prices, chains, err := buildFetchers(cfg)
	if err != nil {
		log.Printf("[FATAL] init data source: %v", err)
		return 1
	}
	log.Printf("[INFO] price source: %s, chain source: %s, symbol: %s", prices.Name(), chains.Name(), cfg.Symbol)

	col := collector.NewCollector(prices, chains, cfg.Symbol, cfg.Analysis.RetentionDays)
	p := pipeline.New(col, pipeline.Options{
		HVWindowDays: cfg.Analysis.HVWindowDays,
		HorizonDays:  cfg.Analysis.HorizonDays,
		Selection: selector.Config{
			MaxRequests:          cfg.Analysis.MaxOptionRequests,
			MinFetchIntervalDays: cfg.Analysis.FetchIntervalDays,
			TargetHorizonDays:    cfg.Analysis.TargetExpirationDays,
		},
	})
	if cfg.Output.ChartPath != "" {
		p.Renderer = render.NewPNGRenderer(cfg.Output.ChartPath)
	}
	if cfg.Output.ExportPath != "" {
		p.Saver = saver.NewSeriesSaver(cfg.Output.ExportFormat)
		p.ExportPath = cfg.Output.ExportPath
	}

	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		} else {
			p.Recorder = sr
			defer sr.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	if cfg.Schedule.Cron == "" {
		if err := runOnce(ctx, p, sender); err != nil {
			log.Printf("[FATAL] %v", err)
			return 1
		}
		return 0
	}

	sched := scheduler.NewScheduler(ctx, p, sender)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Printf("[FATAL] register cron task: %v", err)
		return 1
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] run_on_start enabled, executing analysis now")
		sched.HandleCommand("/run")
	}

	log.Printf("[INFO] volsentinel is running on schedule %q. Press Ctrl+C to stop.", cfg.Schedule.Cron)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] volsentinel stopped")
	return 0
}

// runOnce performs a single analysis, prints the report and exits on SIGINT/SIGTERM mid-run.
func runOnce(parent context.Context, p *pipeline.Pipeline, sender scheduler.Sender) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := p.Run(ctx)
	if err != nil {
		if errors.Is(err, pipeline.ErrBootstrap) {
			return fmt.Errorf("cannot start analysis, price history unavailable: %w", err)
		}
		return err
	}
	fmt.Print(notifier.FormatReport(rep))

	if sender != nil {
		if err := sender.SendReport(ctx, rep, 3); err != nil {
			log.Printf("[ERROR] send notification: %v", err)
		}
	}
	return nil
}

func buildFetchers(cfg *config.Config) (collector.PriceFetcher, collector.ChainFetcher, error) {
	var av *collector.AlphaVantageFetcher
	alphaVantage := func() *collector.AlphaVantageFetcher {
		if av == nil {
			av = collector.NewAlphaVantageFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.RequestsPerMinute)
		}
		return av
	}
	mock := &collector.MockFetcher{Price: 450, Days: 300}

	var prices collector.PriceFetcher
	switch cfg.DataSource.PriceSource {
	case "alphavantage":
		prices = alphaVantage()
	case "yahoo":
		prices = collector.NewYahooFetcher(cfg.Proxy)
	case "mock":
		prices = mock
	default:
		return nil, nil, fmt.Errorf("unknown price source %q", cfg.DataSource.PriceSource)
	}

	var chains collector.ChainFetcher
	switch cfg.DataSource.ChainSource {
	case "alphavantage":
		chains = alphaVantage()
	case "mock":
		chains = mock
	default:
		return nil, nil, fmt.Errorf("unknown chain source %q", cfg.DataSource.ChainSource)
	}
	return prices, chains, nil
}
