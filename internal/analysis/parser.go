package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"NewsLens/internal/domain"
)

// summaryUnavailable replaces empty summarization output.
const summaryUnavailable = "Summary not available."

// rationaleUnavailable explains bias results that fell back to the
// neutral zero values.
const rationaleUnavailable = "Unable to analyze bias due to processing error."

const maxTopics = 10

// ParseCategory extracts the category from raw model output. Degraded
// is raised when the value had to come from a keyword scan or the
// default rather than a structured field.
func ParseCategory(raw string) (string, bool) {
	if m, ok := extractObject(raw); ok {
		if s, ok := stringField(m, "category"); ok {
			if category, ok := matchVocabulary(s, domain.Categories); ok {
				return category, false
			}
			if strings.EqualFold(strings.TrimSpace(s), domain.CategoryUncategorized) {
				return domain.CategoryUncategorized, false
			}
		}
	}
	if s, ok := scanField(raw, "category"); ok {
		if category, ok := matchVocabulary(s, domain.Categories); ok {
			return category, false
		}
	}
	if category, ok := matchVocabulary(raw, domain.Categories); ok {
		return category, true
	}
	return domain.CategoryUncategorized, true
}

// ParseSignals extracts sentiment, importance and topics from raw model
// output. Each attribute falls back to its default independently;
// Degraded is raised when any of them did.
func ParseSignals(raw string) (domain.Signals, bool) {
	signals := domain.Signals{
		Sentiment:  domain.SentimentNeutral,
		Importance: domain.ImportanceMedium,
	}
	degraded := false

	object, hasObject := extractObject(raw)

	sentimentFound := false
	if hasObject {
		if s, ok := stringField(object, "sentiment"); ok {
			if v, ok := matchVocabulary(s, domain.Sentiments); ok {
				signals.Sentiment = v
				sentimentFound = true
			}
		}
	}
	if !sentimentFound {
		if s, ok := scanField(raw, "sentiment"); ok {
			if v, ok := matchVocabulary(s, domain.Sentiments); ok {
				signals.Sentiment = v
				sentimentFound = true
			}
		}
	}
	if !sentimentFound {
		degraded = true
	}

	importanceFound := false
	if hasObject {
		if s, ok := stringField(object, "importance"); ok {
			if v, ok := matchVocabulary(s, domain.ImportanceLevels); ok {
				signals.Importance = v
				importanceFound = true
			}
		}
	}
	if !importanceFound {
		if s, ok := scanField(raw, "importance"); ok {
			if v, ok := matchVocabulary(s, domain.ImportanceLevels); ok {
				signals.Importance = v
				importanceFound = true
			}
		}
	}
	if !importanceFound {
		degraded = true
	}

	topicsFound := false
	if hasObject {
		if items, ok := stringList(object, "topics"); ok {
			signals.Topics = normalizeTopics(items)
			topicsFound = true
		}
	}
	if !topicsFound {
		if s, ok := scanField(raw, "topics"); ok {
			signals.Topics = normalizeTopics(splitList(s))
			topicsFound = true
		}
	}
	if !topicsFound {
		degraded = true
	}

	return signals, degraded
}

// ParseBias extracts a bias assessment from raw model output. Values
// are clamped to their documented ranges; rationales that arrive as
// nested structures are flattened to prose. An output without a usable
// score and confidence yields the degraded neutral result.
func ParseBias(raw string) domain.BiasResult {
	var (
		score, confidence float64
		scoreOK, confOK   bool
		rationale         string
	)

	if object, ok := extractObject(raw); ok {
		score, scoreOK = numberField(object, "political_bias", "bias_score", "bias", "score")
		confidence, confOK = numberField(object, "bias_confidence", "confidence")
		for _, key := range []string{"bias_reasoning", "bias_rationale", "reasoning", "rationale", "explanation"} {
			if v, present := object[key]; present {
				if flat := flattenRationale(v); flat != "" {
					rationale = flat
					break
				}
			}
		}
	}

	if !scoreOK {
		if s, ok := scanField(raw, "political_bias"); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				score, scoreOK = f, true
			}
		}
	}
	if !confOK {
		if s, ok := scanField(raw, "bias_confidence"); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				confidence, confOK = f, true
			}
		}
	}
	if rationale == "" {
		if s, ok := scanField(raw, "bias_reasoning"); ok {
			rationale = s
		}
	}

	result := domain.BiasResult{Degraded: !(scoreOK && confOK)}
	if scoreOK {
		result.Score = clamp(score, -1, 1)
	}
	if confOK {
		result.Confidence = clamp(confidence, 0, 1)
	}
	result.Rationale = rationale
	if result.Degraded && result.Rationale == "" {
		result.Rationale = rationaleUnavailable
	}
	return result
}

// ParseSummary cleans raw summarization output, falling back to a
// placeholder when the model produced nothing usable.
func ParseSummary(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "Summary:")
	s = strings.Trim(strings.TrimSpace(s), `"`)
	s = strings.TrimSpace(s)
	if s == "" {
		return summaryUnavailable
	}
	return s
}

// extractObject pulls the widest {...} slice out of raw output and
// unmarshals it. Local models habitually wrap their JSON in prose.
func extractObject(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, false
	}

	var object map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &object); err != nil {
		return nil, false
	}
	return object, true
}

func stringField(object map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := object[key]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

func numberField(object map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := object[key]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func stringList(object map[string]any, key string) ([]string, bool) {
	v, ok := object[key]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				items = append(items, s)
			} else {
				items = append(items, fmt.Sprint(item))
			}
		}
		return items, true
	case string:
		return splitList(t), true
	}
	return nil, false
}

// scanField recovers a value from key: value or key = value lines when
// the output is not valid JSON.
func scanField(raw, key string) (string, bool) {
	re := regexp.MustCompile(`(?im)^[\s"']*` + regexp.QuoteMeta(key) + `[\s"']*[:=][ \t]*(.+)$`)
	match := re.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}
	value := strings.TrimSpace(match[1])
	value = strings.TrimRight(value, ",")
	value = strings.Trim(value, `"'`)
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// matchVocabulary finds the first vocabulary term appearing as a whole
// word in the text. Term order decides ties.
func matchVocabulary(text string, vocabulary []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, term := range vocabulary {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
		if re.MatchString(lower) {
			return term, true
		}
	}
	return "", false
}

// flattenRationale reduces an arbitrarily nested rationale value to a
// single prose string. Map keys are visited in sorted order so the
// flattening is deterministic.
func flattenRationale(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			if flat := flattenRationale(t[key]); flat != "" {
				parts = append(parts, key+": "+flat)
			}
		}
		return strings.Join(parts, "; ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if flat := flattenRationale(item); flat != "" {
				parts = append(parts, flat)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}

func normalizeTopics(items []string) []string {
	seen := make(map[string]bool, len(items))
	topics := make([]string, 0, len(items))
	for _, item := range items {
		topic := strings.ToLower(strings.Join(strings.Fields(item), " "))
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}

func splitList(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
