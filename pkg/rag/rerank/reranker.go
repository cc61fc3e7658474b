package rerank

import (
	"sort"
	"strings"
	"unicode/utf8"

	"ragone-be/pkg/store"
)

// Config holds the reranking weights. Weights need not sum to 1.
type Config struct {
	RelevanceWeight    float64
	DiversityWeight    float64
	MaxRerankedResults int
}

func DefaultConfig() Config {
	return Config{
		RelevanceWeight:    0.9,
		DiversityWeight:    0.1,
		MaxRerankedResults: 5,
	}
}

// lengthPenaltyScale is the content length (in characters) at which the
// length penalty bottoms out.
const lengthPenaltyScale = 10000.0

// Rerank reorders fused results by relevance and diversity and truncates to
// MaxRerankedResults. Diversity is computed against the candidates ranked
// above in the incoming (fused) order, which is O(n^2) in len(results).
// The input slice is not modified.
func Rerank(query string, results []store.FusedResult, cfg Config) []store.FusedResult {
	if len(results) == 0 {
		return []store.FusedResult{}
	}

	queryTokens := Tokenize(query)
	wordSets := make([]map[string]struct{}, len(results))
	for i, r := range results {
		wordSets[i] = WordSet(r.Content)
	}

	out := make([]store.FusedResult, len(results))
	for i, r := range results {
		r.Relevance = Relevance(queryTokens, r.Content)
		r.Diversity = diversity(wordSets, i)
		r.RerankScore = r.Relevance*cfg.RelevanceWeight + r.Diversity*cfg.DiversityWeight
		r.Reranked = true
		out[i] = r
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].RerankScore != out[b].RerankScore {
			return out[a].RerankScore > out[b].RerankScore
		}
		return out[a].ID.String() < out[b].ID.String()
	})

	if cfg.MaxRerankedResults > 0 && len(out) > cfg.MaxRerankedResults {
		out = out[:cfg.MaxRerankedResults]
	}
	return out
}

// Tokenize lower-cases and splits on whitespace, dropping single-character tokens.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// WordSet is Tokenize as a set.
func WordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}

// Relevance is keyword density scaled by a length penalty: each query token
// contributes occurrences/len(token), and the sum is multiplied by
// max(0.1, 1 - len(content)/10000) so shorter fragments score higher.
func Relevance(queryTokens []string, content string) float64 {
	lower := strings.ToLower(content)

	var score float64
	for _, tok := range queryTokens {
		n := strings.Count(lower, tok)
		if n > 0 {
			score += float64(n) / float64(utf8.RuneCountInString(tok))
		}
	}

	penalty := 1 - float64(utf8.RuneCountInString(content))/lengthPenaltyScale
	if penalty < 0.1 {
		penalty = 0.1
	}
	return score * penalty
}

// Jaccard similarity of two word sets. An empty union shares nothing, so
// fragments without indexable words are never treated as duplicates.
func Jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// diversity of candidate i is the product of (1 - jaccard) against every
// candidate ranked above it. The top candidate is fully diverse.
func diversity(sets []map[string]struct{}, i int) float64 {
	d := 1.0
	for j := 0; j < i; j++ {
		d *= 1 - Jaccard(sets[i], sets[j])
	}
	if d < 0 {
		return 0
	}
	return d
}
