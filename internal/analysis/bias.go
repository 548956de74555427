package analysis

import (
	"context"
	"log/slog"
	"strings"

	"NewsLens/internal/domain"
	"NewsLens/internal/ports"
)

// BiasAnalyzer assesses political lean for articles whose category is
// in the configured eligible set. Other articles keep the neutral zero
// values without spending a model call.
type BiasAnalyzer struct {
	client     Inferencer
	categories map[string]struct{}
	logger     *slog.Logger
}

// NewBiasAnalyzer wires an inference client and the eligible category
// set.
func NewBiasAnalyzer(client Inferencer, categories []string, logger *slog.Logger) *BiasAnalyzer {
	set := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category != "" {
			set[category] = struct{}{}
		}
	}
	return &BiasAnalyzer{client: client, categories: set, logger: logger}
}

var _ ports.BiasChecker = (*BiasAnalyzer)(nil)

// Eligible reports whether articles of this category get bias-checked.
func (b *BiasAnalyzer) Eligible(category string) bool {
	_, ok := b.categories[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

// Analyze runs one bias assessment. It never fails: endpoint errors
// yield the degraded neutral result so the cycle can continue.
func (b *BiasAnalyzer) Analyze(ctx context.Context, title, content string) domain.BiasResult {
	raw, err := b.client.Infer(ctx, TaskBias, title, content)
	if err != nil {
		b.logger.Warn("bias call failed", "title", title, "error", err)
		return domain.BiasResult{Rationale: rationaleUnavailable, Degraded: true}
	}
	return ParseBias(raw)
}
