package domain

import "testing"

func TestBiasLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score float64
		want  string
	}{
		{-1.0, "Left"},
		{-0.5, "Left"},
		{-0.3, "Left-lean"},
		{-0.2, "Left-lean"},
		{-0.1, "Neutral"},
		{0, "Neutral"},
		{0.19, "Neutral"},
		{0.2, "Right-lean"},
		{0.4, "Right-lean"},
		{0.5, "Right"},
		{1.0, "Right"},
	}
	for _, tc := range cases {
		label, interpretation := BiasLabel(tc.score)
		if label != tc.want {
			t.Fatalf("BiasLabel(%v) = %s, want %s", tc.score, label, tc.want)
		}
		if interpretation == "" {
			t.Fatalf("BiasLabel(%v) returned empty interpretation", tc.score)
		}
	}
}

func TestValidInteraction(t *testing.T) {
	t.Parallel()

	for _, kind := range []InteractionKind{InteractionView, InteractionLike, InteractionDislike} {
		if !ValidInteraction(kind) {
			t.Fatalf("%s must be valid", kind)
		}
	}
	if ValidInteraction("share") {
		t.Fatalf("unknown kinds must be rejected")
	}
}

func TestDefaultEnrichment(t *testing.T) {
	t.Parallel()

	e := DefaultEnrichment()
	if e.Category != CategoryUncategorized || e.Sentiment != SentimentNeutral || e.Importance != ImportanceMedium {
		t.Fatalf("unexpected defaults: %+v", e)
	}
	if !e.Degraded {
		t.Fatalf("defaults must be marked degraded")
	}
}

func TestApplyEnrichmentAndBias(t *testing.T) {
	t.Parallel()

	var article Article
	article.ApplyEnrichment(Enrichment{Category: "politics", Sentiment: SentimentNegative, Importance: ImportanceHigh, Topics: []string{"vote"}})
	article.ApplyBias(BiasResult{Score: -0.4, Confidence: 0.7, Rationale: "framing"})

	if article.Category != "politics" || article.Sentiment != SentimentNegative || article.Importance != ImportanceHigh {
		t.Fatalf("enrichment not applied: %+v", article)
	}
	if len(article.Topics) != 1 || article.Topics[0] != "vote" {
		t.Fatalf("topics not applied: %v", article.Topics)
	}
	if article.BiasScore != -0.4 || article.BiasConfidence != 0.7 || article.BiasRationale != "framing" {
		t.Fatalf("bias not applied: %+v", article)
	}
}
