package service

import (
	"context"
	"encoding/json"

	"ragone-be/internal/dto"
	"ragone-be/internal/entity"
	"ragone-be/pkg/store"

	"github.com/google/uuid"
)

// maxContextChunks caps the fragments that ground one answer.
const maxContextChunks = 5

// snippetRunes bounds the content persisted with each chunk reference.
const snippetRunes = 200

// KnowledgeSearcher is implemented by *fusion.Engine.
type KnowledgeSearcher interface {
	HybridSearch(ctx context.Context, query string, kbId uuid.UUID) []store.FusedResult
}

func capResults(results []store.FusedResult, limit int) []store.FusedResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

func chunkRefs(results []store.FusedResult) []entity.ContextChunkRef {
	refs := make([]entity.ContextChunkRef, len(results))
	for i, r := range results {
		refs[i] = entity.ContextChunkRef{
			Id:            r.ID,
			DocumentId:    r.DocumentID,
			ChunkPosition: r.ChunkPosition,
			Content:       truncateRunes(r.Content, snippetRunes),
		}
	}
	return refs
}

func chunkRefsJSON(refs []entity.ContextChunkRef) string {
	if len(refs) == 0 {
		return ""
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return ""
	}
	return string(b)
}

func toSources(refs []entity.ContextChunkRef, results []store.FusedResult) []dto.SourceResponse {
	out := make([]dto.SourceResponse, len(refs))
	for i, ref := range refs {
		out[i] = dto.SourceResponse{
			ChunkId:       ref.Id,
			DocumentId:    ref.DocumentId,
			ChunkPosition: ref.ChunkPosition,
			Snippet:       ref.Content,
		}
		if i < len(results) {
			out[i].Score = resultScore(results[i])
		}
	}
	return out
}

func resultScore(r store.FusedResult) float64 {
	if r.Reranked {
		return r.RerankScore
	}
	return r.FusionScore
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
