package vectorstore

import (
	"context"
	"fmt"

	"github.com/ScriptSmith/hadrian/embedding"
	"github.com/ScriptSmith/hadrian/vectorstore/rerank"
	"go.uber.org/zap"
)

// RetrievalServiceConfig configures a RetrievalService's query path.
type RetrievalServiceConfig struct {
	// Metric is the distance metric the backing VectorStore's raw scores
	// must be normalized against (see NormalizeScore).
	Metric DistanceMetric
	// TopK is the number of results returned after fusion/rerank.
	TopK int
	// CandidatePoolSize is how many dense hits to pull from the store
	// before fusion narrows them down to TopK; must be >= TopK.
	CandidatePoolSize int
}

func (c RetrievalServiceConfig) candidatePool() int {
	if c.CandidatePoolSize > 0 {
		return c.CandidatePoolSize
	}
	if c.TopK > 0 {
		return c.TopK * 4
	}
	return 40
}

func (c RetrievalServiceConfig) topK() int {
	if c.TopK > 0 {
		return c.TopK
	}
	return 10
}

// RetrievalService is the VectorSubstrate query path: embed the query text
// via the embedding package, search a VectorStore, fuse the dense hits
// against a caller-supplied keyword ranking through FuseResultsLimited, and
// optionally hand the fused set to a rerank.Provider for a final pass.
type RetrievalService struct {
	embedder embedding.Provider
	store    VectorStore
	reranker rerank.Provider
	cfg      RetrievalServiceConfig
	logger   *zap.Logger
}

// NewRetrievalService creates a RetrievalService. reranker may be nil, in
// which case the RRF-fused order is returned unchanged.
func NewRetrievalService(embedder embedding.Provider, store VectorStore, reranker rerank.Provider, cfg RetrievalServiceConfig, logger *zap.Logger) *RetrievalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalService{embedder: embedder, store: store, reranker: reranker, cfg: cfg, logger: logger}
}

// Query embeds text, runs the dense vector search, fuses it against keyword
// (e.g. BM25) results when supplied, and reranks the result when a
// rerank.Provider is configured. Pass a nil keyword slice for dense-only search.
func (s *RetrievalService) Query(ctx context.Context, text string, keyword []RankedResult) ([]VectorSearchResult, error) {
	embResp, err := s.embedder.Embed(ctx, &embedding.EmbeddingRequest{
		Input:     []string{text},
		InputType: embedding.InputTypeQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embResp.Embeddings) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vectors")
	}

	dense, err := s.store.Search(ctx, embResp.Embeddings[0].Embedding, s.cfg.candidatePool())
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	byID := make(map[string]VectorSearchResult, len(dense))
	denseRanked := make([]RankedResult, 0, len(dense))
	for _, d := range dense {
		d.Score = NormalizeScore(s.cfg.Metric, d.Score)
		byID[d.Document.ID] = d
		denseRanked = append(denseRanked, RankedResult{DocID: d.Document.ID, Score: d.Score})
	}

	fused := denseRanked
	if len(keyword) > 0 {
		fused = FuseResultsLimited(denseRanked, keyword, s.cfg.topK())
	} else if len(fused) > s.cfg.topK() {
		fused = fused[:s.cfg.topK()]
	}

	results := make([]VectorSearchResult, 0, len(fused))
	for _, f := range fused {
		if r, ok := byID[f.DocID]; ok {
			r.Score = f.Score
			results = append(results, r)
		}
	}

	if s.reranker == nil || len(results) == 0 {
		return results, nil
	}

	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Document.Content
	}
	reranked, err := s.reranker.RerankSimple(ctx, text, docs, len(results))
	if err != nil {
		s.logger.Warn("rerank failed, returning RRF-fused order", zap.Error(err))
		return results, nil
	}

	out := make([]VectorSearchResult, 0, len(reranked))
	for _, rr := range reranked {
		if rr.Index < 0 || rr.Index >= len(results) {
			continue
		}
		r := results[rr.Index]
		r.Score = rr.RelevanceScore
		out = append(out, r)
	}
	return out, nil
}
