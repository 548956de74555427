package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsLens/internal/domain"
	"NewsLens/internal/ports"
)

var (
	// ErrRefreshBusy is returned when a refresh cycle is requested
	// while another one is still running.
	ErrRefreshBusy = errors.New("refresh cycle already running")

	// ErrFeedExists is returned when subscribing a URL that is already
	// in the feed set.
	ErrFeedExists = errors.New("feed already subscribed")
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source       ports.FeedSource
	Articles     ports.ArticleRepository
	Feeds        ports.FeedRepository
	Preferences  ports.PreferenceRepository
	Interactions ports.InteractionRepository
	Enricher     ports.Enricher
	Bias         ports.BiasChecker
	Scorer       ports.Scorer
	Notifier     ports.Notifier
	Clock        ports.Clock
	Logger       *slog.Logger
	Workers      int
	Window       time.Duration
}

// Pipeline implements the refresh workflow and the per-article
// operations on top of it.
type Pipeline struct {
	source       ports.FeedSource
	articles     ports.ArticleRepository
	feeds        ports.FeedRepository
	preferences  ports.PreferenceRepository
	interactions ports.InteractionRepository
	enricher     ports.Enricher
	bias         ports.BiasChecker
	scorer       ports.Scorer
	notifier     ports.Notifier
	clock        ports.Clock
	logger       *slog.Logger
	workers      int
	window       time.Duration

	running sync.Mutex
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	workers := deps.Workers
	if workers <= 0 {
		workers = 3
	}
	window := deps.Window
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	clock := deps.Clock
	if clock == nil {
		clock = ports.ClockFunc(time.Now)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		source:       deps.Source,
		articles:     deps.Articles,
		feeds:        deps.Feeds,
		preferences:  deps.Preferences,
		interactions: deps.Interactions,
		enricher:     deps.Enricher,
		bias:         deps.Bias,
		scorer:       deps.Scorer,
		notifier:     deps.Notifier,
		clock:        clock,
		logger:       logger,
		workers:      workers,
		window:       window,
	}
}

// RunRefreshCycle pulls every active feed once: fetch, dedup by
// fingerprint, analyze, bias-check, score and persist. Cycles never
// overlap; a second caller gets ErrRefreshBusy while one is running.
// Per-feed and per-article failures are counted and logged, only a
// store-wide outage aborts the cycle.
func (p *Pipeline) RunRefreshCycle(ctx context.Context) (domain.CycleReport, error) {
	if !p.running.TryLock() {
		return domain.CycleReport{}, ErrRefreshBusy
	}
	defer p.running.Unlock()

	report := domain.CycleReport{ID: uuid.NewString(), StartedAt: p.clock.Now()}
	log := p.logger.With("cycle", report.ID)

	feeds, err := p.feeds.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active feeds: %w", err)
	}
	prefs, err := p.preferences.List(ctx, "")
	if err != nil {
		return report, fmt.Errorf("list preferences: %w", err)
	}

	available := p.enricher.Available(ctx)
	if !available {
		log.Warn("inference endpoint unavailable, storing entries with default attributes")
	}

	log.Info("refresh cycle started", "feeds", len(feeds))

	for _, feed := range feeds {
		if ctx.Err() != nil {
			break
		}
		run := p.processFeed(ctx, log, feed, prefs, available)
		report.Feeds = append(report.Feeds, run)
		report.New += run.New
		report.Updated += run.Updated
		report.Failed += run.Failed
	}

	report.FinishedAt = p.clock.Now()
	log.Info("refresh cycle finished",
		"new", report.New, "updated", report.Updated, "failed", report.Failed,
		"duration", report.FinishedAt.Sub(report.StartedAt))

	if ctx.Err() == nil {
		p.publishDigest(ctx, report)
	}

	return report, ctx.Err()
}

type workItem struct {
	candidate domain.Candidate
	existing  *domain.Article
}

func (p *Pipeline) processFeed(ctx context.Context, log *slog.Logger, feed domain.Feed, prefs []domain.Preference, available bool) domain.FeedRun {
	run := domain.FeedRun{FeedID: feed.ID, FeedURL: feed.URL, State: domain.StateFetching}
	flog := log.With("feed", feed.URL)

	candidates, skipped, err := p.source.Fetch(ctx, feed)
	if err != nil {
		flog.Warn("feed fetch failed", "error", err)
		run.Failed++
		run.Note = err.Error()
		run.State = domain.StateDone
		return run
	}
	run.Skipped = skipped
	if err := p.feeds.UpdateLastFetched(ctx, feed.ID, p.clock.Now()); err != nil {
		flog.Warn("record fetch time failed", "error", err)
	}

	// Skip entries already ingested unless their last analysis was
	// degraded; those get a fresh pass.
	run.State = domain.StateDeduplicating
	var work []workItem
	for _, candidate := range candidates {
		existing, err := p.articles.FindByFingerprint(ctx, candidate.Fingerprint)
		if err != nil {
			flog.Warn("fingerprint lookup failed", "title", candidate.Title, "error", err)
			run.Failed++
			continue
		}
		if existing != nil && !existing.Degraded {
			continue
		}
		work = append(work, workItem{candidate: candidate, existing: existing})
	}
	if len(work) == 0 {
		run.State = domain.StateDone
		return run
	}

	run.State = domain.StateAnalyzing
	enrichments := make([]domain.Enrichment, len(work))
	if available {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for i := range work {
			g.Go(func() error {
				enrichments[i] = p.enricher.Analyze(gctx, work[i].candidate.Title, work[i].candidate.Body)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range enrichments {
			enrichments[i] = domain.DefaultEnrichment()
		}
	}
	if ctx.Err() != nil {
		run.Note = "cancelled"
		run.State = domain.StateDone
		return run
	}

	run.State = domain.StateBiasChecking
	biases := make([]domain.BiasResult, len(work))
	if available {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)
		for i := range work {
			if !p.bias.Eligible(enrichments[i].Category) {
				continue
			}
			g.Go(func() error {
				biases[i] = p.bias.Analyze(gctx, work[i].candidate.Title, work[i].candidate.Body)
				return nil
			})
		}
		_ = g.Wait()
	}
	if ctx.Err() != nil {
		run.Note = "cancelled"
		run.State = domain.StateDone
		return run
	}

	run.State = domain.StateScoring
	since := p.clock.Now().Add(-p.window)
	articles := make([]domain.Article, len(work))
	for i := range work {
		article := buildArticle(feed, work[i].candidate, enrichments[i], biases[i])
		if prev := work[i].existing; prev != nil {
			article.ID = prev.ID
			article.CreatedAt = prev.CreatedAt
			article.Read = prev.Read
			article.Summary = prev.Summary
		}

		interactions, err := p.interactions.List(ctx, domain.InteractionQuery{Category: article.Category, Since: since})
		if err != nil {
			flog.Warn("interaction lookup failed", "category", article.Category, "error", err)
			interactions = nil
		}
		article.Relevance = p.scorer.Score(article, prefs, interactions)
		articles[i] = article
	}

	run.State = domain.StatePersisting
	for i := range articles {
		isNew := work[i].existing == nil
		if _, err := p.articles.Upsert(ctx, &articles[i]); err != nil {
			flog.Warn("persist failed", "title", articles[i].Title, "error", err)
			run.Failed++
			continue
		}
		if isNew && !articles[i].Degraded {
			run.New++
		} else {
			run.Updated++
		}
	}

	run.State = domain.StateDone
	flog.Debug("feed processed", "new", run.New, "updated", run.Updated, "failed", run.Failed, "skipped", run.Skipped)
	return run
}

func buildArticle(feed domain.Feed, c domain.Candidate, e domain.Enrichment, b domain.BiasResult) domain.Article {
	article := domain.Article{
		Fingerprint: c.Fingerprint,
		FeedID:      feed.ID,
		Title:       c.Title,
		Content:     c.Body,
		URL:         c.Link,
		Author:      c.Author,
		Source:      feedLabel(feed),
		PublishedAt: c.PublishedAt,
	}
	article.ApplyEnrichment(e)
	article.ApplyBias(b)
	article.Degraded = e.Degraded || b.Degraded
	return article
}

func feedLabel(feed domain.Feed) string {
	if feed.Title != "" {
		return feed.Title
	}
	return feed.URL
}

// AnalyzeArticle re-runs the full analysis for one stored article and
// persists the refreshed attributes.
func (p *Pipeline) AnalyzeArticle(ctx context.Context, id int64) (domain.Article, error) {
	article, err := p.articles.Get(ctx, id)
	if err != nil {
		return domain.Article{}, err
	}

	enrichment := p.enricher.Analyze(ctx, article.Title, article.Content)
	article.ApplyEnrichment(enrichment)

	var bias domain.BiasResult
	if p.bias.Eligible(article.Category) {
		bias = p.bias.Analyze(ctx, article.Title, article.Content)
	}
	article.ApplyBias(bias)
	article.Degraded = enrichment.Degraded || bias.Degraded

	if err := p.rescore(ctx, &article); err != nil {
		return domain.Article{}, err
	}

	if _, err := p.articles.Upsert(ctx, &article); err != nil {
		return domain.Article{}, fmt.Errorf("persist article: %w", err)
	}
	return article, nil
}

// ComputeBias returns the bias assessment of one article, running the
// assessment on demand when an eligible article has none stored yet.
func (p *Pipeline) ComputeBias(ctx context.Context, id int64) (domain.BiasReport, error) {
	article, err := p.articles.Get(ctx, id)
	if err != nil {
		return domain.BiasReport{}, err
	}

	if article.BiasRationale == "" && p.bias.Eligible(article.Category) {
		result := p.bias.Analyze(ctx, article.Title, article.Content)
		article.ApplyBias(result)
		if result.Degraded {
			article.Degraded = true
		}
		if _, err := p.articles.Upsert(ctx, &article); err != nil {
			return domain.BiasReport{}, fmt.Errorf("persist article: %w", err)
		}
	}

	report := domain.BiasReport{
		ArticleID:  article.ID,
		Title:      article.Title,
		Category:   article.Category,
		Score:      article.BiasScore,
		Confidence: article.BiasConfidence,
		Rationale:  article.BiasRationale,
	}
	if report.Rationale == "" {
		report.Rationale = "No bias analysis available."
	}
	report.Label, report.Interpretation = domain.BiasLabel(article.BiasScore)
	return report, nil
}

// RecomputeRelevance rescores one article against current preferences
// and recent interactions, persisting the new score.
func (p *Pipeline) RecomputeRelevance(ctx context.Context, id int64) (float64, error) {
	article, err := p.articles.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := p.rescore(ctx, &article); err != nil {
		return 0, err
	}
	if err := p.articles.SaveRelevance(ctx, id, article.Relevance); err != nil {
		return 0, fmt.Errorf("save relevance: %w", err)
	}
	return article.Relevance, nil
}

func (p *Pipeline) rescore(ctx context.Context, article *domain.Article) error {
	prefs, err := p.preferences.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list preferences: %w", err)
	}
	since := p.clock.Now().Add(-p.window)
	interactions, err := p.interactions.List(ctx, domain.InteractionQuery{Category: article.Category, Since: since})
	if err != nil {
		return fmt.Errorf("list interactions: %w", err)
	}
	article.Relevance = p.scorer.Score(*article, prefs, interactions)
	return nil
}

// SummarizeArticle returns the article summary, serving the cached one
// when present. The bool reports a cache hit.
func (p *Pipeline) SummarizeArticle(ctx context.Context, id int64) (string, bool, error) {
	article, err := p.articles.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	if article.Summary != "" {
		return article.Summary, true, nil
	}

	summary, err := p.enricher.Summarize(ctx, article.Title, article.Content)
	if err != nil {
		return "", false, fmt.Errorf("summarize article %d: %w", id, err)
	}
	if err := p.articles.SaveSummary(ctx, id, summary); err != nil {
		return "", false, fmt.Errorf("save summary: %w", err)
	}
	return summary, false, nil
}

// MarkRead marks an article read and records the implied view
// interaction so scoring sees it.
func (p *Pipeline) MarkRead(ctx context.Context, id int64) error {
	if err := p.articles.SetRead(ctx, id, true); err != nil {
		return err
	}
	view := domain.Interaction{ArticleID: id, Kind: domain.InteractionView, Value: 1, CreatedAt: p.clock.Now()}
	if err := p.interactions.Record(ctx, view); err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	return nil
}

// MarkUnread clears the read marker.
func (p *Pipeline) MarkUnread(ctx context.Context, id int64) error {
	return p.articles.SetRead(ctx, id, false)
}

// ReadingStats reports read tracking totals.
func (p *Pipeline) ReadingStats(ctx context.Context) (domain.ReadStats, error) {
	return p.articles.ReadStats(ctx)
}

// RecordInteraction stores one reader action against an article.
func (p *Pipeline) RecordInteraction(ctx context.Context, articleID int64, kind domain.InteractionKind, value float64) error {
	if !domain.ValidInteraction(kind) {
		return fmt.Errorf("unknown interaction kind %q", kind)
	}
	if _, err := p.articles.Get(ctx, articleID); err != nil {
		return err
	}
	interaction := domain.Interaction{ArticleID: articleID, Kind: kind, Value: value, CreatedAt: p.clock.Now()}
	return p.interactions.Record(ctx, interaction)
}

// ListArticles returns stored articles matching the filter.
func (p *Pipeline) ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	return p.articles.List(ctx, filter)
}

// GetArticle loads one article.
func (p *Pipeline) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	return p.articles.Get(ctx, id)
}

// Preferences returns all active keyword preferences.
func (p *Pipeline) Preferences(ctx context.Context) ([]domain.Preference, error) {
	return p.preferences.List(ctx, "")
}

// SetPreference stores the keyword boosts for a category.
func (p *Pipeline) SetPreference(ctx context.Context, pref domain.Preference) error {
	if strings.TrimSpace(pref.Category) == "" {
		return errors.New("preference category required")
	}
	if pref.Keywords == nil {
		pref.Keywords = map[string]float64{}
	}
	return p.preferences.Upsert(ctx, pref)
}

// RemovePreference deletes the preference for a category.
func (p *Pipeline) RemovePreference(ctx context.Context, category string) error {
	return p.preferences.Delete(ctx, category)
}

// AddFeed subscribes a new feed URL, probing it for channel metadata.
// A failed probe still subscribes the bare URL.
func (p *Pipeline) AddFeed(ctx context.Context, url, category string) (domain.Feed, error) {
	existing, err := p.feeds.FindByURL(ctx, url)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("find feed: %w", err)
	}
	if existing != nil {
		return *existing, ErrFeedExists
	}

	feed := domain.Feed{URL: url, Category: category, Active: true}
	info, probeErr := p.source.Probe(ctx, url)
	if probeErr != nil {
		p.logger.Warn("feed probe failed, subscribing bare url", "url", url, "error", probeErr)
	} else {
		feed.Title = info.Title
		feed.SiteURL = info.SiteURL
		feed.Description = info.Description
		feed.Language = info.Language
	}

	id, err := p.feeds.Insert(ctx, feed)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("insert feed: %w", err)
	}
	feed.ID = id
	return feed, nil
}

func (p *Pipeline) publishDigest(ctx context.Context, report domain.CycleReport) {
	if p.notifier == nil {
		return
	}
	if report.New == 0 && report.Updated == 0 && report.Failed == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(report)); err != nil {
		p.logger.Warn("digest publish failed", "error", err)
	}
}

func buildDigestMessage(report domain.CycleReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "News refresh %s\n", report.FinishedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "New: %d  Updated: %d  Failed: %d\n", report.New, report.Updated, report.Failed)
	for _, run := range report.Feeds {
		if run.Note != "" {
			fmt.Fprintf(&b, "- %s: %s\n", run.FeedURL, run.Note)
		}
	}
	return b.String()
}
