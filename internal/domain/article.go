package domain

import (
	"errors"
	"time"
)

// ErrNotFound signals that a requested record does not exist in the store.
var ErrNotFound = errors.New("not found")

// Category values assignable by the classification step. Articles that
// cannot be classified keep CategoryUncategorized.
const (
	CategoryUncategorized = "uncategorized"
	CategoryPolitics      = "politics"
	CategoryWorld         = "world"
)

// Categories lists the assignable classification vocabulary in priority
// order. Matching scans respect this order, so earlier entries win ties.
var Categories = []string{
	"technology",
	"politics",
	"business",
	"science",
	"health",
	"sports",
	"entertainment",
	"fashion",
	"world",
}

// Sentiment values produced by the signal extraction step.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Sentiments lists the sentiment vocabulary in matching order.
var Sentiments = []string{SentimentPositive, SentimentNegative, SentimentNeutral}

// Importance values produced by the signal extraction step.
const (
	ImportanceHigh   = "high"
	ImportanceMedium = "medium"
	ImportanceLow    = "low"
)

// ImportanceLevels lists the importance vocabulary in matching order.
var ImportanceLevels = []string{ImportanceHigh, ImportanceMedium, ImportanceLow}

// Article is the core entity: one ingested news item together with its
// derived attributes. Derived fields are overwritten on every analysis
// pass; Degraded marks rows whose attributes came from fallback defaults
// and are worth re-analyzing.
type Article struct {
	ID          int64
	Fingerprint string
	FeedID      int64
	Title       string
	Content     string
	URL         string
	Author      string
	Source      string
	PublishedAt time.Time

	Category   string
	Sentiment  string
	Importance string
	Topics     []string
	Summary    string

	BiasScore      float64
	BiasConfidence float64
	BiasRationale  string

	Relevance float64
	Degraded  bool
	Read      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyEnrichment copies derived classification attributes onto the article.
func (a *Article) ApplyEnrichment(e Enrichment) {
	a.Category = e.Category
	a.Sentiment = e.Sentiment
	a.Importance = e.Importance
	a.Topics = e.Topics
	a.Degraded = e.Degraded
}

// ApplyBias copies a bias assessment onto the article.
func (a *Article) ApplyBias(b BiasResult) {
	a.BiasScore = b.Score
	a.BiasConfidence = b.Confidence
	a.BiasRationale = b.Rationale
}

// Enrichment bundles the attributes derived from the classification and
// signal extraction calls. Degraded is set when any attribute fell back
// to its default because the model response could not be interpreted.
type Enrichment struct {
	Category   string
	Sentiment  string
	Importance string
	Topics     []string
	Degraded   bool
}

// DefaultEnrichment returns the fallback attribute set used when the
// inference endpoint is unreachable or its output is unusable.
func DefaultEnrichment() Enrichment {
	return Enrichment{
		Category:   CategoryUncategorized,
		Sentiment:  SentimentNeutral,
		Importance: ImportanceMedium,
		Degraded:   true,
	}
}

// Signals carries the sentiment, importance and topic attributes
// extracted by a single model call.
type Signals struct {
	Sentiment  string
	Importance string
	Topics     []string
}

// BiasResult is the outcome of one political bias assessment. Score runs
// from -1 (left) to +1 (right), Confidence from 0 to 1. Degraded results
// carry the neutral zero values and an explanatory rationale.
type BiasResult struct {
	Score      float64
	Confidence float64
	Rationale  string
	Degraded   bool
}

// BiasReport is the user-facing view of an article's bias assessment.
type BiasReport struct {
	ArticleID      int64
	Title          string
	Category       string
	Score          float64
	Confidence     float64
	Rationale      string
	Label          string
	Interpretation string
}

// BiasLabel maps a bias score to its display label and interpretation.
func BiasLabel(score float64) (string, string) {
	switch {
	case score <= -0.5:
		return "Left", "Left-leaning (progressive, liberal perspective)"
	case score <= -0.2:
		return "Left-lean", "Slight left lean"
	case score >= 0.5:
		return "Right", "Right-leaning (conservative perspective)"
	case score >= 0.2:
		return "Right-lean", "Slight right lean"
	default:
		return "Neutral", "Neutral or non-political"
	}
}

// Feed is a subscribed RSS or Atom source.
type Feed struct {
	ID          int64
	Title       string
	URL         string
	SiteURL     string
	Description string
	Language    string
	Category    string
	Active      bool
	LastFetched time.Time
	CreatedAt   time.Time
}

// Candidate is a raw feed entry after normalization, before dedup and
// analysis. Fingerprint is the stable identity used for dedup.
type Candidate struct {
	Fingerprint string
	Title       string
	Body        string
	Link        string
	GUID        string
	Author      string
	PublishedAt time.Time
}

// FeedInfo is the metadata discovered when probing a feed URL.
type FeedInfo struct {
	Title       string
	Description string
	SiteURL     string
	Language    string
}

// Preference holds the per-category keyword boosts used by relevance
// scoring. A keyword mapped to a non-positive weight uses the configured
// default boost.
type Preference struct {
	Category string
	Keywords map[string]float64
	Active   bool
}

// InteractionKind enumerates recorded reader actions.
type InteractionKind string

const (
	InteractionView    InteractionKind = "view"
	InteractionLike    InteractionKind = "like"
	InteractionDislike InteractionKind = "dislike"
)

// ValidInteraction reports whether k is a recordable interaction kind.
func ValidInteraction(k InteractionKind) bool {
	switch k {
	case InteractionView, InteractionLike, InteractionDislike:
		return true
	}
	return false
}

// Interaction is one recorded reader action against an article. Value
// carries the reading duration in seconds for views and is ignored for
// likes and dislikes.
type Interaction struct {
	ID        int64
	ArticleID int64
	Kind      InteractionKind
	Value     float64
	CreatedAt time.Time
}

// ReadStats summarizes read tracking across the article store.
type ReadStats struct {
	Total  int
	Read   int
	Unread int
}
