package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"insightbot/internal/config"
	"insightbot/internal/dedup"
	"insightbot/internal/delivery"
	"insightbot/internal/feed"
	"insightbot/internal/pipeline"
	"insightbot/internal/render"
	"insightbot/internal/schedule"
	"insightbot/internal/storage"
	"insightbot/internal/telegram"
	"insightbot/pkg/logx"
)

func main() {
	var (
		cfgPath  string
		specFlag string
		once     bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.StringVar(&specFlag, "schedule", "", "run repeatedly on this schedule (cron or duration); overrides config")
	flag.BoolVar(&once, "once", false, "run a single batch and exit, ignoring any schedule")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr, err := config.NewManager(cfgPath, logx.NewConsole("info"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	cfg := mgr.Current()

	log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console || !cfg.Logging.File.Enabled,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	// The Telegram session outlives config reloads; credential changes
	// need a restart (the manager warns about that on reload).
	messenger, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		ChatID:      cfg.Telegram.ChatID,
		ParseMode:   cfg.Telegram.ParseMode,
		Timeout:     cfg.Telegram.TimeoutDur,
		LinkPreview: cfg.Delivery.LinkPreview,
	}, log.With(logx.String("component", "telegram")))
	if err != nil {
		log.Error("telegram setup failed", logx.Err(err))
		os.Exit(1)
	}

	spec := specFlag
	if spec == "" {
		spec = cfg.Schedule.Spec
	}
	if once {
		spec = ""
	}

	if spec == "" {
		if err := runBatch(ctx, mgr.Current(), messenger, log); err != nil {
			log.Error("run failed", logx.Err(err))
			os.Exit(1)
		}
		return
	}

	parsed, err := schedule.Parse(spec)
	if err != nil {
		log.Error("invalid schedule", logx.String("spec", spec), logx.Err(err))
		os.Exit(1)
	}

	go mgr.Watch(ctx)

	log.Info("daemon started", logx.String("schedule", spec))
	runner := schedule.NewRunner(parsed, func(ctx context.Context) error {
		// Fresh config each tick so file reloads take effect between runs.
		return runBatch(ctx, mgr.Current(), messenger, log)
	}, log.With(logx.String("component", "schedule")))

	if err := runner.Start(ctx); err != nil {
		log.Error("daemon failed", logx.Err(err))
		os.Exit(1)
	}
}

// runBatch builds per-run components from the given config and executes
// one pipeline pass. All in-memory state is reconstructed fresh from the
// state files, so a batch behaves the same in one-shot and daemon mode.
func runBatch(ctx context.Context, cfg config.Config, messenger delivery.Messenger, log logx.Logger) error {
	store, err := storage.Open(storage.Config{
		Driver:      cfg.State.Driver,
		Dir:         cfg.State.Dir,
		BusyTimeout: cfg.State.BusyTimeoutDur,
	}, log.With(logx.String("component", "storage")))
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()

	tracker := dedup.NewTracker(ctx, store, cfg.State.MaxProcessed, log.With(logx.String("component", "dedup")))

	fetcher := feed.NewClient(feed.Config{
		BaseURL: cfg.Feed.BaseURL,
		Limit:   cfg.Feed.Limit,
		Timeout: cfg.Feed.TimeoutDur,
	}, log.With(logx.String("component", "feed")))

	var renderer render.Renderer
	if cfg.Delivery.UseImageOverlay {
		r, err := render.Probe(render.Config{
			CanvasWidth:        cfg.Render.CanvasWidth,
			CanvasHeight:       cfg.Render.CanvasHeight,
			FontSize:           cfg.Render.FontSize,
			Padding:            cfg.Render.Padding,
			LineSpacing:        cfg.Render.LineSpacing,
			TextColor:          cfg.Render.TextColor,
			FallbackBackground: cfg.Render.FallbackBackground,
			DimOpacity:         cfg.Render.DimOpacity,
			FontFile:           cfg.Render.FontFile,
		}, log.With(logx.String("component", "render")))
		if err != nil {
			log.Warn("composite rendering unavailable, falling back to simpler representations", logx.Err(err))
		} else {
			renderer = r
		}
	}

	sender := delivery.NewSender(messenger, renderer, delivery.Config{
		UseImageOverlay: cfg.Delivery.UseImageOverlay,
		InsightBaseURL:  cfg.Feed.InsightBaseURL,
	}, log.With(logx.String("component", "delivery")))

	runner := pipeline.NewRunner(fetcher, tracker, sender, pipeline.Config{
		MinAge:       cfg.Feed.MinAgeDur,
		MessageDelay: cfg.Delivery.MessageDelayDur,
	}, log.With(logx.String("component", "pipeline")))

	_, err = runner.Run(ctx)
	return err
}
