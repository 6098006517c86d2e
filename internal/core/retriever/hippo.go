package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/driver"
	"github.com/wnsgho/legal-full/internal/llm"
	"github.com/wnsgho/legal-full/internal/vector"
)

// HippoRetriever is the dense path: embed the query, pull top-k passages
// from the vector index, then rerank the candidates with the LLM reranker.
// Final scores are monotone in the reranked order.
type HippoRetriever struct {
	Embedder llm.EmbedderClient
	Index    vector.Index
	Reranker llm.RerankerClient
	Store    driver.GraphStore
	log      *zap.Logger
}

func NewHippoRetriever(embedder llm.EmbedderClient, index vector.Index, reranker llm.RerankerClient, store driver.GraphStore, log *zap.Logger) *HippoRetriever {
	return &HippoRetriever{Embedder: embedder, Index: index, Reranker: reranker, Store: store, log: log}
}

func (r *HippoRetriever) Search(ctx context.Context, query string, k int) ([]model.ScoredPassage, error) {
	if k <= 0 {
		return nil, nil
	}
	queryVec, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.Index.Search(ctx, queryVec, k, vector.KindPassage)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	passages, err := r.Store.PassagesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Passage, len(passages))
	for _, p := range passages {
		byID[p.ID] = p
	}

	// Preserve vector ranking for hits whose passage body is missing from
	// the graph; they are dropped rather than returned without text.
	ordered := make([]model.Passage, 0, len(hits))
	for _, h := range hits {
		if p, ok := byID[h.ID]; ok {
			ordered = append(ordered, p)
		}
	}
	if len(ordered) == 0 {
		return nil, nil
	}

	docs := make([]string, len(ordered))
	for i, p := range ordered {
		docs[i] = p.Text
	}
	ranking, err := r.Reranker.Rank(ctx, query, docs)
	if err != nil || len(ranking) == 0 {
		if err != nil {
			r.log.Warn("rerank failed, keeping vector order", zap.Error(err))
		}
		ranking = make([]int, len(ordered))
		for i := range ranking {
			ranking[i] = i
		}
	}

	results := make([]model.ScoredPassage, 0, len(ranking))
	for rank, idx := range ranking {
		if idx < 0 || idx >= len(ordered) {
			continue
		}
		results = append(results, model.ScoredPassage{
			Passage: ordered[idx],
			Score:   1.0 / float64(rank+1),
		})
	}
	return results, nil
}
