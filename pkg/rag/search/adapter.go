package search

import (
	"context"
	"strings"

	"ragone-be/internal/pkg/logger"
	"ragone-be/internal/repository/contract"
	"ragone-be/internal/repository/unitofwork"
	"ragone-be/pkg/embedding"
	"ragone-be/pkg/store"

	"github.com/google/uuid"
)

const moduleTag = "RETRIEVAL"

// Retriever is the similarity-search capability the fusion engine depends on.
// All methods are best effort: failures are logged and yield an empty list.
type Retriever interface {
	// VectorSearch returns at most limit candidates, ascending by cosine distance.
	VectorSearch(ctx context.Context, queryVector []float32, kbId uuid.UUID, limit int) []store.Candidate
	// KeywordSearch returns at most limit candidates, descending by text rank.
	KeywordSearch(ctx context.Context, queryText string, kbId uuid.UUID, limit int) []store.Candidate
	// SemanticSearch embeds queryText and runs VectorSearch.
	SemanticSearch(ctx context.Context, queryText string, kbId uuid.UUID, limit int) []store.Candidate
}

// Adapter runs similarity queries against the document chunk store.
type Adapter struct {
	repoFactory unitofwork.RepositoryFactory
	embedder    embedding.EmbeddingProvider
	logger      logger.ILogger
}

func NewAdapter(repoFactory unitofwork.RepositoryFactory, embedder embedding.EmbeddingProvider, log logger.ILogger) *Adapter {
	return &Adapter{
		repoFactory: repoFactory,
		embedder:    embedder,
		logger:      log,
	}
}

func (a *Adapter) VectorSearch(ctx context.Context, queryVector []float32, kbId uuid.UUID, limit int) []store.Candidate {
	if len(queryVector) == 0 || limit <= 0 {
		return []store.Candidate{}
	}

	uow := a.repoFactory.NewUnitOfWork(ctx)
	rows, err := uow.DocumentChunkRepository().SearchSimilar(ctx, kbId, queryVector, limit)
	if err != nil {
		a.logger.Error(moduleTag, "Vector search failed", map[string]interface{}{
			"knowledge_base_id": kbId.String(),
			"error":             err.Error(),
		})
		return []store.Candidate{}
	}

	a.logger.Debug(moduleTag, "Vector search completed", map[string]interface{}{
		"knowledge_base_id": kbId.String(),
		"results":           len(rows),
	})
	return toCandidates(rows)
}

func (a *Adapter) KeywordSearch(ctx context.Context, queryText string, kbId uuid.UUID, limit int) []store.Candidate {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" || limit <= 0 {
		return []store.Candidate{}
	}

	uow := a.repoFactory.NewUnitOfWork(ctx)
	rows, err := uow.DocumentChunkRepository().SearchKeyword(ctx, kbId, queryText, limit)
	if err != nil {
		a.logger.Error(moduleTag, "Keyword search failed", map[string]interface{}{
			"knowledge_base_id": kbId.String(),
			"error":             err.Error(),
		})
		return []store.Candidate{}
	}

	a.logger.Debug(moduleTag, "Keyword search completed", map[string]interface{}{
		"knowledge_base_id": kbId.String(),
		"results":           len(rows),
	})
	return toCandidates(rows)
}

func (a *Adapter) SemanticSearch(ctx context.Context, queryText string, kbId uuid.UUID, limit int) []store.Candidate {
	if strings.TrimSpace(queryText) == "" {
		return []store.Candidate{}
	}

	res, err := a.embedder.Generate(ctx, queryText, embedding.TaskRetrievalQuery)
	if err != nil {
		a.logger.Warn(moduleTag, "Query embedding failed, vector search skipped", map[string]interface{}{
			"error": err.Error(),
		})
		return []store.Candidate{}
	}
	return a.VectorSearch(ctx, res.Embedding.Values, kbId, limit)
}

func toCandidates(rows []*contract.ScoredChunk) []store.Candidate {
	out := make([]store.Candidate, 0, len(rows))
	seen := make(map[uuid.UUID]bool, len(rows))
	for _, r := range rows {
		if r == nil || r.Chunk == nil || seen[r.Chunk.Id] {
			continue
		}
		seen[r.Chunk.Id] = true
		out = append(out, store.Candidate{
			ID:            r.Chunk.Id,
			Content:       r.Chunk.Content,
			DocumentID:    r.Chunk.DocumentId,
			ChunkPosition: r.Chunk.ChunkPosition,
			Score:         r.Score,
		})
	}
	return out
}
