package store

import "github.com/google/uuid"

// Candidate is one knowledge-base fragment returned by a retrieval mode.
// Score is the raw backend score (cosine similarity or ts_rank) and is
// informational only; fusion works on list position.
type Candidate struct {
	ID            uuid.UUID `json:"id"`
	Content       string    `json:"content"`
	DocumentID    uuid.UUID `json:"document_id"`
	ChunkPosition int       `json:"chunk_position"`
	Score         float64   `json:"score"`
}

// FusedResult is a candidate after hybrid fusion and, optionally, reranking.
type FusedResult struct {
	Candidate

	FusionScore float64 `json:"fusion_score"`

	// Populated only when reranking ran.
	Relevance   float64 `json:"relevance,omitempty"`
	Diversity   float64 `json:"diversity,omitempty"`
	RerankScore float64 `json:"rerank_score,omitempty"`
	Reranked    bool    `json:"reranked"`
}

// Candidates strips scores, keeping order.
func Candidates(results []FusedResult) []Candidate {
	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = r.Candidate
	}
	return out
}

// Contents returns the fragment texts in order, at most limit of them (limit <= 0 means all).
func Contents(candidates []Candidate, limit int) []string {
	n := len(candidates)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].Content
	}
	return out
}
