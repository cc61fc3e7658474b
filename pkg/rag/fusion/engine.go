package fusion

import (
	"context"
	"fmt"
	"sort"

	"ragone-be/internal/pkg/logger"
	"ragone-be/pkg/rag/rerank"
	"ragone-be/pkg/rag/search"
	"ragone-be/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const moduleTag = "RETRIEVAL"

type Config struct {
	HybridEnabled bool
	VectorWeight  float64
	KeywordWeight float64
	MaxResults    int

	RerankEnabled bool
	Rerank        rerank.Config
}

func DefaultConfig() Config {
	return Config{
		HybridEnabled: false,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
		MaxResults:    10,
		RerankEnabled: true,
		Rerank:        rerank.DefaultConfig(),
	}
}

// Engine answers hybridSearch for one knowledge base at a time.
// Config is fixed at construction; the engine holds no per-query state.
type Engine struct {
	retriever search.Retriever
	cfg       Config
	logger    logger.ILogger
	tracer    trace.Tracer

	reranker RerankFunc
}

// RerankFunc reorders fused results for query.
type RerankFunc func(query string, fused []store.FusedResult, cfg rerank.Config) []store.FusedResult

func NewEngine(retriever search.Retriever, cfg Config, log logger.ILogger) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	return &Engine{
		retriever: retriever,
		cfg:       cfg,
		logger:    log,
		tracer:    otel.Tracer("ragone-be/rag/fusion"),
		reranker:  rerank.Rerank,
	}
}

// WithReranker replaces the default reranker.
func (e *Engine) WithReranker(fn RerankFunc) *Engine {
	if fn != nil {
		e.reranker = fn
	}
	return e
}

func (e *Engine) Config() Config {
	return e.cfg
}

// HybridSearch retrieves, fuses and optionally reranks fragments for query.
// It never returns an error; degraded paths are logged.
func (e *Engine) HybridSearch(ctx context.Context, query string, kbId uuid.UUID) []store.FusedResult {
	ctx, span := e.tracer.Start(ctx, "fusion.HybridSearch", trace.WithAttributes(
		attribute.String("knowledge_base_id", kbId.String()),
		attribute.Bool("hybrid", e.cfg.HybridEnabled),
	))
	defer span.End()

	if !e.cfg.HybridEnabled {
		return e.vectorOnly(ctx, query, kbId)
	}

	var vector, keyword []store.Candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vector = e.retriever.SemanticSearch(gctx, query, kbId, e.cfg.MaxResults)
		return gctx.Err()
	})
	g.Go(func() error {
		keyword = e.retriever.KeywordSearch(gctx, query, kbId, e.cfg.MaxResults)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		e.logger.Warn(moduleTag, "Hybrid search interrupted, falling back to vector-only", map[string]interface{}{
			"error": err.Error(),
		})
		span.SetAttributes(attribute.Bool("fallback", true))
		return passThrough(vector, e.cfg.MaxResults)
	}

	fused, err := safeFuse([]WeightedList{
		{Candidates: vector, Weight: e.cfg.VectorWeight},
		{Candidates: keyword, Weight: e.cfg.KeywordWeight},
	}, e.cfg.MaxResults)
	if err != nil {
		e.logger.Error(moduleTag, "Fusion failed, falling back to vector-only", map[string]interface{}{
			"error": err.Error(),
		})
		span.SetAttributes(attribute.Bool("fallback", true))
		return passThrough(vector, e.cfg.MaxResults)
	}

	e.logger.Debug(moduleTag, "Hybrid fusion completed", map[string]interface{}{
		"vector":  len(vector),
		"keyword": len(keyword),
		"fused":   len(fused),
	})

	if !e.cfg.RerankEnabled {
		return fused
	}
	return e.rerank(query, fused)
}

func (e *Engine) vectorOnly(ctx context.Context, query string, kbId uuid.UUID) []store.FusedResult {
	return passThrough(e.retriever.SemanticSearch(ctx, query, kbId, e.cfg.MaxResults), e.cfg.MaxResults)
}

func (e *Engine) rerank(query string, fused []store.FusedResult) (out []store.FusedResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("RERANK", "Rerank failed, keeping fused order", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			out = fused
		}
	}()
	return e.reranker(query, fused, e.cfg.Rerank)
}

// WeightedList is one retrieval mode's ordered output and its fusion weight.
type WeightedList struct {
	Candidates []store.Candidate
	Weight     float64
}

// Fuse scores each list positionally (1 - i/len) times its weight, sums the
// scores of candidates sharing an id, and returns the union sorted by fused
// score descending with ties broken by id ascending, truncated to maxResults.
func Fuse(lists []WeightedList, maxResults int) []store.FusedResult {
	byID := make(map[uuid.UUID]*store.FusedResult)
	order := make([]uuid.UUID, 0)

	for _, list := range lists {
		n := len(list.Candidates)
		for i, c := range list.Candidates {
			score := (1 - float64(i)/float64(n)) * list.Weight
			if existing, ok := byID[c.ID]; ok {
				existing.FusionScore += score
				continue
			}
			byID[c.ID] = &store.FusedResult{Candidate: c, FusionScore: score}
			order = append(order, c.ID)
		}
	}

	out := make([]store.FusedResult, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].FusionScore != out[b].FusionScore {
			return out[a].FusionScore > out[b].FusionScore
		}
		return out[a].ID.String() < out[b].ID.String()
	})

	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func safeFuse(lists []WeightedList, maxResults int) (out []store.FusedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fusion panic: %v", r)
		}
	}()
	return Fuse(lists, maxResults), nil
}

// passThrough wraps vector results in retrieval order. Duplicate ids keep the
// first occurrence.
func passThrough(candidates []store.Candidate, maxResults int) []store.FusedResult {
	out := make([]store.FusedResult, 0, len(candidates))
	seen := make(map[uuid.UUID]bool, len(candidates))
	n := len(candidates)
	for i, c := range candidates {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, store.FusedResult{Candidate: c, FusionScore: 1 - float64(i)/float64(n)})
		if maxResults > 0 && len(out) == maxResults {
			break
		}
	}
	return out
}
