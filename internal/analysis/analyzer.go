package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"NewsLens/internal/domain"
	"NewsLens/internal/ports"
)

// Inferencer is the completion surface the analyzers need from a
// client.
type Inferencer interface {
	Infer(ctx context.Context, task Task, title, content string) (string, error)
	Available(ctx context.Context) bool
}

// Analyzer derives classification attributes and summaries from article
// text via separate model calls per task.
type Analyzer struct {
	client Inferencer
	logger *slog.Logger
}

// NewAnalyzer wires an inference client.
func NewAnalyzer(client Inferencer, logger *slog.Logger) *Analyzer {
	return &Analyzer{client: client, logger: logger}
}

var _ ports.Enricher = (*Analyzer)(nil)

// Analyze runs the categorize and signal extraction calls. It never
// fails: any call or parse trouble leaves the affected attributes at
// their defaults and raises the Degraded flag so a later cycle retries.
func (a *Analyzer) Analyze(ctx context.Context, title, content string) domain.Enrichment {
	enrichment := domain.DefaultEnrichment()

	raw, err := a.client.Infer(ctx, TaskCategorize, title, content)
	if err != nil {
		a.logger.Warn("categorize call failed", "title", title, "error", err)
	} else {
		enrichment.Category, enrichment.Degraded = ParseCategory(raw)
	}

	raw, err = a.client.Infer(ctx, TaskSignals, title, content)
	if err != nil {
		a.logger.Warn("signal extraction call failed", "title", title, "error", err)
		enrichment.Degraded = true
	} else {
		signals, degraded := ParseSignals(raw)
		enrichment.Sentiment = signals.Sentiment
		enrichment.Importance = signals.Importance
		enrichment.Topics = signals.Topics
		enrichment.Degraded = enrichment.Degraded || degraded
	}

	return enrichment
}

// Summarize produces a short factual summary. Unlike Analyze it
// surfaces endpoint errors, since callers want to distinguish a missing
// summary from an unavailable model.
func (a *Analyzer) Summarize(ctx context.Context, title, content string) (string, error) {
	raw, err := a.client.Infer(ctx, TaskSummarize, title, content)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return ParseSummary(raw), nil
}

// Available reports whether the inference endpoint currently serves a
// model.
func (a *Analyzer) Available(ctx context.Context) bool {
	return a.client.Available(ctx)
}
