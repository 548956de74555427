package analysis

import (
	"context"
	"errors"
	"testing"

	"NewsLens/internal/domain"
)

type fakeInferencer struct {
	responses map[Task]string
	errs      map[Task]error
	available bool
	calls     []Task
}

func (f *fakeInferencer) Infer(ctx context.Context, task Task, title, content string) (string, error) {
	f.calls = append(f.calls, task)
	if err := f.errs[task]; err != nil {
		return "", err
	}
	return f.responses[task], nil
}

func (f *fakeInferencer) Available(ctx context.Context) bool { return f.available }

func TestAnalyzerAnalyze(t *testing.T) {
	t.Parallel()

	fake := &fakeInferencer{responses: map[Task]string{
		TaskCategorize: `{"category": "politics"}`,
		TaskSignals:    `{"sentiment": "negative", "importance": "high", "topics": ["election"]}`,
	}}
	analyzer := NewAnalyzer(fake, testLogger())

	enrichment := analyzer.Analyze(context.Background(), "Vote count", "The count continues.")
	if enrichment.Degraded {
		t.Fatalf("unexpected degraded flag: %+v", enrichment)
	}
	if enrichment.Category != "politics" {
		t.Fatalf("unexpected category: %s", enrichment.Category)
	}
	if enrichment.Sentiment != domain.SentimentNegative || enrichment.Importance != domain.ImportanceHigh {
		t.Fatalf("unexpected signals: %+v", enrichment)
	}
	if len(enrichment.Topics) != 1 || enrichment.Topics[0] != "election" {
		t.Fatalf("unexpected topics: %v", enrichment.Topics)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(fake.calls))
	}
}

func TestAnalyzerAnalyzeEndpointDown(t *testing.T) {
	t.Parallel()

	fake := &fakeInferencer{errs: map[Task]error{
		TaskCategorize: ErrUnavailable,
		TaskSignals:    ErrUnavailable,
	}}
	analyzer := NewAnalyzer(fake, testLogger())

	enrichment := analyzer.Analyze(context.Background(), "T", "C")
	if !enrichment.Degraded {
		t.Fatalf("expected degraded enrichment")
	}
	if enrichment.Category != domain.CategoryUncategorized {
		t.Fatalf("expected default category, got %s", enrichment.Category)
	}
	if enrichment.Sentiment != domain.SentimentNeutral || enrichment.Importance != domain.ImportanceMedium {
		t.Fatalf("expected default signals, got %+v", enrichment)
	}
}

func TestAnalyzerAnalyzeSignalsFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeInferencer{
		responses: map[Task]string{TaskCategorize: `{"category": "politics"}`},
		errs:      map[Task]error{TaskSignals: ErrTimeout},
	}
	analyzer := NewAnalyzer(fake, testLogger())

	enrichment := analyzer.Analyze(context.Background(), "T", "C")
	if enrichment.Category != "politics" {
		t.Fatalf("category from the successful call must survive, got %s", enrichment.Category)
	}
	if !enrichment.Degraded {
		t.Fatalf("a failed signal call must mark the enrichment degraded")
	}
}

func TestAnalyzerSummarize(t *testing.T) {
	t.Parallel()

	fake := &fakeInferencer{responses: map[Task]string{TaskSummarize: "Summary: Compact recap."}}
	analyzer := NewAnalyzer(fake, testLogger())

	summary, err := analyzer.Summarize(context.Background(), "T", "C")
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if summary != "Compact recap." {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func TestAnalyzerSummarizeError(t *testing.T) {
	t.Parallel()

	fake := &fakeInferencer{errs: map[Task]error{TaskSummarize: ErrUnavailable}}
	analyzer := NewAnalyzer(fake, testLogger())

	_, err := analyzer.Summarize(context.Background(), "T", "C")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected wrapped ErrUnavailable, got %v", err)
	}
}
