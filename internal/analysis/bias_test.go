package analysis

import (
	"context"
	"testing"
)

func TestBiasAnalyzerEligible(t *testing.T) {
	t.Parallel()

	analyzer := NewBiasAnalyzer(nil, []string{"Politics", " world ", ""}, testLogger())

	if !analyzer.Eligible("politics") {
		t.Fatalf("politics must be eligible")
	}
	if !analyzer.Eligible("Politics") {
		t.Fatalf("eligibility must ignore case")
	}
	if !analyzer.Eligible("world") {
		t.Fatalf("world must be eligible after trimming")
	}
	if analyzer.Eligible("technology") {
		t.Fatalf("technology must not be eligible")
	}
	if analyzer.Eligible("") {
		t.Fatalf("empty category must not be eligible")
	}
}

func TestBiasAnalyzerAnalyze(t *testing.T) {
	t.Parallel()

	fake := &fakeInferencer{responses: map[Task]string{
		TaskBias: `{"political_bias": 0.5, "bias_confidence": 0.8, "bias_reasoning": "Framing favors one side."}`,
	}}
	analyzer := NewBiasAnalyzer(fake, []string{"politics"}, testLogger())

	result := analyzer.Analyze(context.Background(), "Title", "Content")
	if result.Degraded {
		t.Fatalf("unexpected degraded flag: %+v", result)
	}
	if result.Score != 0.5 || result.Confidence != 0.8 {
		t.Fatalf("unexpected values: %+v", result)
	}
	if result.Rationale != "Framing favors one side." {
		t.Fatalf("unexpected rationale: %q", result.Rationale)
	}
}

func TestBiasAnalyzerAnalyzeFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeInferencer{errs: map[Task]error{TaskBias: ErrUnavailable}}
	analyzer := NewBiasAnalyzer(fake, []string{"politics"}, testLogger())

	result := analyzer.Analyze(context.Background(), "Title", "Content")
	if !result.Degraded {
		t.Fatalf("expected degraded result")
	}
	if result.Score != 0 || result.Confidence != 0 {
		t.Fatalf("expected neutral zero values, got %+v", result)
	}
	if result.Rationale != rationaleUnavailable {
		t.Fatalf("unexpected rationale: %q", result.Rationale)
	}
}
