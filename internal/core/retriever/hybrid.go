package retriever

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/driver"
	"github.com/wnsgho/legal-full/internal/vector"
)

// conceptExpansionK bounds how many Concept vertices each extracted concept
// resolves to by embedding similarity.
const conceptExpansionK = 5

// PassageSearcher is the common shape of the LKG and dense retrievers.
type PassageSearcher interface {
	Search(ctx context.Context, query string, k int) ([]model.ScoredPassage, error)
}

// ConceptExtractor narrows the concept dependency for tests.
type ConceptExtractor interface {
	Extract(ctx context.Context, text string) ([]model.Concept, error)
}

// Weights orders the fusion components: graph, concept, expansion, hippo.
type Weights [4]float64

// DefaultWeights is the heuristic seed from the source system; tune against
// a labeled set before trusting it.
var DefaultWeights = Weights{0.3, 0.25, 0.15, 0.3}

// ConceptHybridRetriever fuses direct graph search, concept matching,
// concept expansion through graph neighbors, and dense retrieval into one
// ranked passage list.
type ConceptHybridRetriever struct {
	Graph     PassageSearcher
	Hippo     PassageSearcher
	Extractor ConceptExtractor
	Index     vector.Index
	Store     driver.GraphStore
	Weights   Weights
	log       *zap.Logger
}

func NewConceptHybridRetriever(graph, hippo PassageSearcher, extractor ConceptExtractor, index vector.Index, store driver.GraphStore, weights Weights, log *zap.Logger) *ConceptHybridRetriever {
	return &ConceptHybridRetriever{
		Graph:     graph,
		Hippo:     hippo,
		Extractor: extractor,
		Index:     index,
		Store:     store,
		Weights:   weights,
		log:       log,
	}
}

// HybridRetrieve runs the four sub-searches, tolerating individual
// failures, and fuses the survivors. At least one sub-search must succeed
// or ErrRetrievalUnavailable is returned. Given fixed store contents and
// embeddings the output is reproducible: sub-results land in fixed slots
// and the fusion sort is stable with an id tiebreak.
func (r *ConceptHybridRetriever) HybridRetrieve(ctx context.Context, query string, topN int) (*model.HybridResult, error) {
	result := &model.HybridResult{
		Stats: model.SearchStats{
			Queries:          []string{query},
			SubRetrieverHits: make(map[string]int),
		},
	}

	var (
		graphHits, conceptHits, expansionHits, hippoHits []model.ScoredPassage
		graphErr, conceptErr, expansionErr, hippoErr     error
	)

	var g errgroup.Group
	g.Go(func() error {
		graphHits, graphErr = r.Graph.Search(ctx, query, topN)
		return nil
	})
	g.Go(func() error {
		hippoHits, hippoErr = r.Hippo.Search(ctx, query, topN)
		return nil
	})
	g.Go(func() error {
		concepts, err := r.Extractor.Extract(ctx, query)
		if err != nil {
			conceptErr, expansionErr = err, err
			return nil
		}
		conceptHits, conceptErr = r.searchByConcepts(ctx, concepts, topN)
		expansionHits, expansionErr = r.expandConcepts(ctx, concepts)
		return nil
	})
	_ = g.Wait()

	succeeded := 0
	record := func(name string, hits []model.ScoredPassage, err error) []model.ScoredPassage {
		if err != nil {
			r.log.Warn("sub-retriever failed", zap.String("retriever", name), zap.Error(err))
			return nil
		}
		succeeded++
		result.Stats.SubRetrieverHits[name] = len(hits)
		return hits
	}
	result.GraphHits = record("graph", graphHits, graphErr)
	result.ConceptHits = record("concept", conceptHits, conceptErr)
	result.ConceptExpansionHits = record("concept_expansion", expansionHits, expansionErr)
	result.HippoHits = record("hippo", hippoHits, hippoErr)

	if succeeded == 0 {
		return nil, model.Faultf(model.ErrRetrievalUnavailable, "all sub-retrievers failed for query %q", query)
	}
	result.Stats.SuccessfulSearches = succeeded

	result.Passages = fuse(r.Weights, topN,
		result.GraphHits, result.ConceptHits, result.ConceptExpansionHits, result.HippoHits)
	result.Stats.TotalClausesFound = len(result.Passages)
	return result, nil
}

// searchByConcepts runs the graph retriever once per concept with the
// per-concept budget ⌈topN/len⌉.
func (r *ConceptHybridRetriever) searchByConcepts(ctx context.Context, concepts []model.Concept, topN int) ([]model.ScoredPassage, error) {
	if len(concepts) == 0 {
		return nil, nil
	}
	perConcept := int(math.Ceil(float64(topN) / float64(len(concepts))))
	var all []model.ScoredPassage
	for _, c := range concepts {
		hits, err := r.Graph.Search(ctx, c.Text, perConcept)
		if err != nil {
			return nil, err
		}
		all = append(all, hits...)
	}
	return all, nil
}

// expandConcepts resolves each extracted concept to stored Concept vertices
// by embedding similarity, then collects the passages attached to those
// vertices through the graph.
func (r *ConceptHybridRetriever) expandConcepts(ctx context.Context, concepts []model.Concept) ([]model.ScoredPassage, error) {
	var all []model.ScoredPassage
	seen := make(map[string]bool)
	for _, c := range concepts {
		if len(c.Embedding) == 0 {
			continue
		}
		hits, err := r.Index.Search(ctx, c.Embedding, conceptExpansionK, vector.KindConcept)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			if seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true
			passages, err := r.Store.PassagesForConcept(ctx, hit.ID)
			if err != nil {
				return nil, err
			}
			for _, p := range passages {
				all = append(all, model.ScoredPassage{Passage: p, Score: hit.Score})
			}
		}
	}
	return all, nil
}

// fuse merges the component lists, deduplicates by passage id, and scores
// each passage as the weighted mean over the components it appears in, so
// absence from a component never penalizes presence in another.
func fuse(w Weights, topN int, components ...[]model.ScoredPassage) []model.ScoredPassage {
	type fusion struct {
		passage model.Passage
		sum     float64
		weight  float64
	}

	fused := make(map[string]*fusion)
	var order []string
	for ci, hits := range components {
		maxScore := 0.0
		for _, h := range hits {
			if h.Score > maxScore {
				maxScore = h.Score
			}
		}
		seen := make(map[string]bool)
		for _, h := range hits {
			if seen[h.Passage.ID] {
				continue
			}
			seen[h.Passage.ID] = true
			norm := 0.0
			if maxScore > 0 {
				norm = h.Score / maxScore
			}
			f, ok := fused[h.Passage.ID]
			if !ok {
				f = &fusion{passage: h.Passage}
				fused[h.Passage.ID] = f
				order = append(order, h.Passage.ID)
			}
			f.sum += w[ci] * norm
			f.weight += w[ci]
		}
	}

	out := make([]model.ScoredPassage, 0, len(order))
	for _, id := range order {
		f := fused[id]
		score := 0.0
		if f.weight > 0 {
			score = f.sum / f.weight
		}
		out = append(out, model.ScoredPassage{Passage: f.passage, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Passage.ID < out[j].Passage.ID
	})
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}
