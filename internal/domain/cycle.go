package domain

import "time"

// FeedRunState enumerates the milestones a feed passes through inside a
// refresh cycle.
type FeedRunState string

const (
	StateFetching      FeedRunState = "fetching"
	StateDeduplicating FeedRunState = "deduplicating"
	StateAnalyzing     FeedRunState = "analyzing"
	StateBiasChecking  FeedRunState = "bias_checking"
	StateScoring       FeedRunState = "scoring"
	StatePersisting    FeedRunState = "persisting"
	StateDone          FeedRunState = "done"
)

// FeedRun records the outcome of one feed inside a refresh cycle. New
// counts fully analyzed first-time inserts, Updated counts writes of
// degraded or re-analyzed rows, Failed counts entries lost to store
// errors and Skipped counts entries dropped before analysis.
type FeedRun struct {
	FeedID  int64
	FeedURL string
	State   FeedRunState
	New     int
	Updated int
	Failed  int
	Skipped int
	Note    string
}

// CycleReport summarizes one refresh cycle across all active feeds.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Feeds      []FeedRun
	New        int
	Updated    int
	Failed     int
}

// ArticleFilter narrows article listings. Zero values leave the
// corresponding dimension unfiltered; Read is a tri-state pointer.
type ArticleFilter struct {
	Category     string
	MinRelevance float64
	Read         *bool
	Limit        int
	Offset       int
}

// InteractionQuery selects interactions by article or by article
// category, optionally bounded to those recorded at or after Since.
type InteractionQuery struct {
	ArticleID int64
	Category  string
	Since     time.Time
}
