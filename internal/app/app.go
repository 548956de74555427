package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsLens/internal/analysis"
	"NewsLens/internal/config"
	"NewsLens/internal/infrastructure/scheduler"
	"NewsLens/internal/infrastructure/storage"
	"NewsLens/internal/infrastructure/telegram"
	"NewsLens/internal/ingest"
	"NewsLens/internal/logging"
	"NewsLens/internal/ports"
	"NewsLens/internal/scoring"
	"NewsLens/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	inference *analysis.Client
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging)
	}

	clock := ports.ClockFunc(time.Now)

	store, err := storage.Open(cfg.Database.Path, clock)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	source := ingest.NewIngestor(nil, clock, cfg.Ingest, baseLogger.With("component", "ingest"))

	inference := analysis.NewClient(cfg.Inference, baseLogger.With("component", "inference"))
	enricher := analysis.NewAnalyzer(inference, baseLogger.With("component", "analyzer"))
	bias := analysis.NewBiasAnalyzer(inference, cfg.Analysis.BiasCategories, baseLogger.With("component", "bias"))

	scorer := scoring.NewScorer(cfg.Scoring)

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:       source,
		Articles:     store.Articles,
		Feeds:        store.Feeds,
		Preferences:  store.Preferences,
		Interactions: store.Interactions,
		Enricher:     enricher,
		Bias:         bias,
		Scorer:       scorer,
		Notifier:     notifier,
		Clock:        clock,
		Logger:       baseLogger.With("component", "pipeline"),
		Workers:      cfg.Ingest.Workers,
		Window:       cfg.Scoring.Window(),
	})

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval())
	sched := usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		inference: inference,
		pipeline:  pipeline,
		scheduler: sched,
	}, nil
}

// Run seeds the feed set, resolves the inference model and drives
// refresh cycles until the context is cancelled. A non-positive
// scheduler interval runs a single cycle and returns.
func (a *Application) Run(ctx context.Context) error {
	if err := a.seedFeeds(ctx); err != nil {
		return fmt.Errorf("seed feeds: %w", err)
	}

	model := a.inference.ResolveModel(ctx)
	if a.inference.Available(ctx) {
		a.logger.Info("inference endpoint ready", "model", model)
	} else {
		a.logger.Warn("inference endpoint unavailable, articles will carry default attributes until it returns")
	}

	if a.cfg.Scheduler.Interval() <= 0 {
		report, err := a.pipeline.RunRefreshCycle(ctx)
		if err != nil {
			return fmt.Errorf("refresh cycle: %w", err)
		}
		a.logger.Info("refresh done", "cycle", report.ID,
			"new", report.New, "updated", report.Updated, "failed", report.Failed)
		return nil
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// seedFeeds subscribes the configured feeds that are not in the store
// yet, probing each for channel metadata.
func (a *Application) seedFeeds(ctx context.Context) error {
	if len(a.cfg.Feeds) == 0 {
		return nil
	}

	for _, seed := range a.cfg.Feeds {
		existing, err := a.store.Feeds.FindByURL(ctx, seed.URL)
		if err != nil {
			return fmt.Errorf("find feed %s: %w", seed.URL, err)
		}
		if existing != nil {
			continue
		}

		if _, err := a.pipeline.AddFeed(ctx, seed.URL, seed.Category); err != nil {
			a.logger.Warn("feed seeding failed", "url", seed.URL, "error", err)
			continue
		}
		a.logger.Info("feed subscribed", "url", seed.URL, "category", seed.Category)
	}

	return nil
}
