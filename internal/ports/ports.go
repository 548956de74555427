package ports

import (
	"context"
	"time"

	"NewsLens/internal/domain"
)

// FeedSource pulls entries from a subscribed feed and normalizes them
// into candidates. The skipped count reports entries dropped because
// they lacked usable identity or content.
type FeedSource interface {
	Fetch(ctx context.Context, feed domain.Feed) (candidates []domain.Candidate, skipped int, err error)
	Probe(ctx context.Context, url string) (domain.FeedInfo, error)
}

// Enricher derives classification attributes and summaries from article
// text. Analyze never fails: unusable model output yields the default
// attribute set with the Degraded flag raised.
type Enricher interface {
	Analyze(ctx context.Context, title, content string) domain.Enrichment
	Summarize(ctx context.Context, title, content string) (string, error)
	Available(ctx context.Context) bool
}

// BiasChecker assesses political lean for articles in eligible
// categories. Analyze never fails; degraded assessments carry neutral
// zero values.
type BiasChecker interface {
	Eligible(category string) bool
	Analyze(ctx context.Context, title, content string) domain.BiasResult
}

// Scorer computes a personalized relevance score from stored
// preferences and recent interactions. Scoring is deterministic for a
// given input set.
type Scorer interface {
	Score(article domain.Article, prefs []domain.Preference, interactions []domain.Interaction) float64
}

// ArticleRepository persists articles keyed by fingerprint.
type ArticleRepository interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (*domain.Article, error)
	Upsert(ctx context.Context, article *domain.Article) (int64, error)
	Get(ctx context.Context, id int64) (domain.Article, error)
	List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)
	SaveSummary(ctx context.Context, id int64, summary string) error
	SaveRelevance(ctx context.Context, id int64, relevance float64) error
	SetRead(ctx context.Context, id int64, read bool) error
	ReadStats(ctx context.Context) (domain.ReadStats, error)
}

// FeedRepository manages the subscribed feed set.
type FeedRepository interface {
	ListActive(ctx context.Context) ([]domain.Feed, error)
	FindByURL(ctx context.Context, url string) (*domain.Feed, error)
	Insert(ctx context.Context, feed domain.Feed) (int64, error)
	UpdateLastFetched(ctx context.Context, feedID int64, fetched time.Time) error
}

// PreferenceRepository stores per-category keyword boosts. List with an
// empty category returns all active preferences.
type PreferenceRepository interface {
	List(ctx context.Context, category string) ([]domain.Preference, error)
	Upsert(ctx context.Context, pref domain.Preference) error
	Delete(ctx context.Context, category string) error
}

// InteractionRepository records and queries reader interactions.
type InteractionRepository interface {
	Record(ctx context.Context, interaction domain.Interaction) error
	List(ctx context.Context, query domain.InteractionQuery) ([]domain.Interaction, error)
}

// Notifier publishes cycle digests to external channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when refresh cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Clock abstracts wall time so cycles and stores can be tested with
// fixed timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }
