package scoring

import (
	"math"
	"testing"

	"NewsLens/internal/config"
	"NewsLens/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreBase(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{})
	got := scorer.Score(domain.Article{Title: "Anything"}, nil, nil)
	if got != 1.0 {
		t.Fatalf("base score must be 1.0, got %v", got)
	}
}

func TestScoreKeywordCountsOnce(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{})
	article := domain.Article{
		Title:   "Quantum leap for quantum computing",
		Content: "Another quantum mention in the body.",
	}
	prefs := []domain.Preference{
		{Category: "technology", Keywords: map[string]float64{"quantum": 0}, Active: true},
	}

	got := scorer.Score(article, prefs, nil)
	if got != 1.5 {
		t.Fatalf("repeated keyword must boost once with the default weight, got %v", got)
	}
}

func TestScoreKeywordCustomWeight(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{})
	article := domain.Article{Title: "Chip shortage deepens"}
	prefs := []domain.Preference{
		{Category: "technology", Keywords: map[string]float64{"chip": 2.0}, Active: true},
	}

	got := scorer.Score(article, prefs, nil)
	if got != 3.0 {
		t.Fatalf("expected 3.0, got %v", got)
	}
}

func TestScoreKeywordCaseInsensitive(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{})
	article := domain.Article{Content: "the nato summit opened today"}
	prefs := []domain.Preference{
		{Category: "world", Keywords: map[string]float64{"NATO": 0}, Active: true},
	}

	if got := scorer.Score(article, prefs, nil); got != 1.5 {
		t.Fatalf("keyword match must ignore case, got %v", got)
	}
}

func TestScoreKeywordMatchesTopics(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{})
	article := domain.Article{Title: "Markets wrap", Topics: []string{"inflation", "rates"}}
	prefs := []domain.Preference{
		{Category: "business", Keywords: map[string]float64{"inflation": 0}, Active: true},
	}

	if got := scorer.Score(article, prefs, nil); got != 1.5 {
		t.Fatalf("topics must count as match surface, got %v", got)
	}
}

func TestScoreInactivePreferenceIgnored(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{})
	article := domain.Article{Title: "Quantum news"}
	prefs := []domain.Preference{
		{Category: "technology", Keywords: map[string]float64{"quantum": 0}, Active: false},
	}

	if got := scorer.Score(article, prefs, nil); got != 1.0 {
		t.Fatalf("inactive preferences must not boost, got %v", got)
	}
}

func TestScoreDuplicateKeywordAcrossPreferences(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{})
	article := domain.Article{Title: "AI everywhere"}
	prefs := []domain.Preference{
		{Category: "technology", Keywords: map[string]float64{"ai": 0}, Active: true},
		{Category: "business", Keywords: map[string]float64{"ai": 0}, Active: true},
	}

	if got := scorer.Score(article, prefs, nil); got != 1.5 {
		t.Fatalf("the same keyword across preferences must boost once, got %v", got)
	}
}

func TestScoreInteractions(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{})
	interactions := []domain.Interaction{
		{Kind: domain.InteractionLike},
		{Kind: domain.InteractionLike},
		{Kind: domain.InteractionDislike},
		{Kind: domain.InteractionView},
	}

	got := scorer.Score(domain.Article{Title: "Anything"}, nil, interactions)
	if !almostEqual(got, 1.1) {
		t.Fatalf("expected 1.1, got %v", got)
	}
}

func TestScoreFloor(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{RelevanceFloor: 0.5})
	interactions := make([]domain.Interaction, 0, 20)
	for i := 0; i < 20; i++ {
		interactions = append(interactions, domain.Interaction{Kind: domain.InteractionDislike})
	}

	got := scorer.Score(domain.Article{Title: "Anything"}, nil, interactions)
	if !almostEqual(got, 0.5) {
		t.Fatalf("score must not drop below the floor, got %v", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(config.ScoringConfig{})
	article := domain.Article{Title: "Energy markets and inflation", Content: "rates, oil, solar"}
	prefs := []domain.Preference{
		{Category: "business", Keywords: map[string]float64{"inflation": 0.3, "oil": 0.2, "solar": 0.4, "rates": 0.1}, Active: true},
	}
	interactions := []domain.Interaction{{Kind: domain.InteractionLike}}

	first := scorer.Score(article, prefs, interactions)
	for i := 0; i < 10; i++ {
		if got := scorer.Score(article, prefs, interactions); got != first {
			t.Fatalf("score varied across runs: %v then %v", first, got)
		}
	}
}
