package analysis

import (
	"fmt"
	"unicode/utf8"
)

type promptConfig struct {
	AnalysisRunes int
	SummaryRunes  int
}

const categorizeTemplate = `You are a news article analyzer. Respond only with valid JSON.

Classify this news article into exactly one category and respond with JSON:
{
    "category": "one of: technology, politics, business, science, health, sports, entertainment, fashion, world"
}

Note: Fashion category includes: streetwear, high fashion, vintage clothing, designer brands, fashion trends, style guides, fashion weeks, and clothing culture.
Use "uncategorized" only if nothing fits.

Title: %s
Content: %s

Respond only with valid JSON, no other text.`

const signalsTemplate = `You are a news article analyzer. Respond only with valid JSON.

Analyze this news article and respond with JSON:
{
    "sentiment": "positive, negative, or neutral",
    "importance": "high, medium, or low",
    "topics": ["list", "of", "key", "topics"]
}

Title: %s
Content: %s

Respond only with valid JSON, no other text.`

const biasTemplate = `You are a news article analyzer. Respond only with valid JSON.

Assess the political bias of this news article and respond with JSON:
{
    "political_bias": -0.2,
    "bias_confidence": 0.8,
    "bias_reasoning": "Detailed explanation of why this bias score was assigned, including specific language choices, framing decisions, source selection, and perspective indicators that influenced the assessment."
}

For political bias analysis:
- -1.0 to -0.5: Left-leaning (progressive, liberal perspective)
- -0.5 to -0.2: Slight left lean
- -0.2 to 0.2: Neutral or non-political
- 0.2 to 0.5: Slight right lean
- 0.5 to 1.0: Right-leaning (conservative perspective)

For bias_reasoning, analyze and explain:
1. Language choices (loaded words, emotional language, descriptive adjectives)
2. Framing decisions (how the story is presented, what's emphasized)
3. Source selection (which voices are included/excluded, credibility indicators)
4. Perspective indicators (whose viewpoint is prioritized, balance of coverage)
5. Context and implications (what's included/omitted from the broader context)

Title: %s
Content: %s

Respond only with valid JSON, no other text.`

const summarizeTemplate = `You are a news summarizer. Provide concise, factual summaries.

Summarize this news article in 1-2 sentences, focusing on the key facts:

Title: %s
Content: %s`

// buildPrompt renders the prompt for a task. Content is truncated to a
// bounded rune count so prompts stay inside the model context window.
func buildPrompt(task Task, title, content string, cfg promptConfig) string {
	analysisRunes := cfg.AnalysisRunes
	if analysisRunes <= 0 {
		analysisRunes = 1000
	}
	summaryRunes := cfg.SummaryRunes
	if summaryRunes <= 0 {
		summaryRunes = 2000
	}

	switch task {
	case TaskCategorize:
		return fmt.Sprintf(categorizeTemplate, title, truncateRunes(content, analysisRunes))
	case TaskSignals:
		return fmt.Sprintf(signalsTemplate, title, truncateRunes(content, analysisRunes))
	case TaskBias:
		return fmt.Sprintf(biasTemplate, title, truncateRunes(content, analysisRunes))
	case TaskSummarize:
		return fmt.Sprintf(summarizeTemplate, title, truncateRunes(content, summaryRunes))
	}
	return fmt.Sprintf(signalsTemplate, title, truncateRunes(content, analysisRunes))
}

// truncateRunes cuts text at a rune boundary so multi-byte characters
// survive the cut, marking the cut with an ellipsis.
func truncateRunes(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
