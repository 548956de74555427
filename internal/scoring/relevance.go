package scoring

import (
	"sort"
	"strings"

	"NewsLens/internal/config"
	"NewsLens/internal/domain"
	"NewsLens/internal/ports"
)

// Scorer computes personalized relevance: a base score of 1.0, boosted
// per matched preference keyword and adjusted by recent like/dislike
// interactions. Scoring is pure, so the same article, preferences and
// interactions always give the same score.
type Scorer struct {
	keywordBoost  float64
	likeWeight    float64
	dislikeWeight float64
	floor         float64
}

// NewScorer builds a scorer from scoring configuration, falling back to
// the documented weights where the config leaves zeros.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	boost := cfg.KeywordBoost
	if boost <= 0 {
		boost = 0.5
	}
	like := cfg.LikeWeight
	if like <= 0 {
		like = 0.1
	}
	dislike := cfg.DislikeWeight
	if dislike <= 0 {
		dislike = 0.1
	}
	return &Scorer{
		keywordBoost:  boost,
		likeWeight:    like,
		dislikeWeight: dislike,
		floor:         cfg.RelevanceFloor,
	}
}

var _ ports.Scorer = (*Scorer)(nil)

// Score computes the relevance of one article. Keywords match
// case-insensitively against title, body and topics; a keyword counts
// at most once no matter how often it appears. Likes raise and dislikes
// lower the score, views leave it unchanged, and the result never drops
// below the floor.
func (s *Scorer) Score(article domain.Article, prefs []domain.Preference, interactions []domain.Interaction) float64 {
	score := 1.0

	haystack := strings.ToLower(article.Title + "\n" + article.Content + "\n" + strings.Join(article.Topics, "\n"))

	counted := make(map[string]bool)
	for _, pref := range prefs {
		if !pref.Active {
			continue
		}
		for _, keyword := range sortedKeywords(pref.Keywords) {
			needle := strings.ToLower(strings.TrimSpace(keyword))
			if needle == "" || counted[needle] {
				continue
			}
			if !strings.Contains(haystack, needle) {
				continue
			}
			counted[needle] = true
			weight := pref.Keywords[keyword]
			if weight <= 0 {
				weight = s.keywordBoost
			}
			score += weight
		}
	}

	for _, interaction := range interactions {
		switch interaction.Kind {
		case domain.InteractionLike:
			score += s.likeWeight
		case domain.InteractionDislike:
			score -= s.dislikeWeight
		}
	}

	if score < s.floor {
		return s.floor
	}
	return score
}

// sortedKeywords fixes the iteration order over a keyword map so
// scoring stays deterministic.
func sortedKeywords(keywords map[string]float64) []string {
	out := make([]string, 0, len(keywords))
	for keyword := range keywords {
		out = append(out, keyword)
	}
	sort.Strings(out)
	return out
}
