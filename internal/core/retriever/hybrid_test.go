package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/vector"
)

func newHybrid(graph, hippo PassageSearcher, extractor ConceptExtractor, idx vector.Index, store *mockGraphStore) *ConceptHybridRetriever {
	if idx == nil {
		idx = vector.NewMemoryIndex(2)
	}
	if store == nil {
		store = &mockGraphStore{}
	}
	return NewConceptHybridRetriever(graph, hippo, extractor, idx, store, DefaultWeights, zap.NewNop())
}

func TestHybridRetrieveDeterministic(t *testing.T) {
	graph := &mockSearcher{HitsByQuery: map[string][]model.ScoredPassage{
		"q": {
			{Passage: passage("p1", "one"), Score: 2.0},
			{Passage: passage("p2", "two"), Score: 1.0},
		},
	}}
	hippo := &mockSearcher{HitsByQuery: map[string][]model.ScoredPassage{
		"q": {
			{Passage: passage("p2", "two"), Score: 0.9},
			{Passage: passage("p3", "three"), Score: 0.5},
		},
	}}
	h := newHybrid(graph, hippo, &mockExtractor{}, nil, nil)

	first, err := h.HybridRetrieve(context.Background(), "q", 10)
	require.NoError(t, err)
	second, err := h.HybridRetrieve(context.Background(), "q", 10)
	require.NoError(t, err)

	require.Equal(t, len(first.Passages), len(second.Passages))
	for i := range first.Passages {
		assert.Equal(t, first.Passages[i].Passage.ID, second.Passages[i].Passage.ID)
		assert.Equal(t, first.Passages[i].Score, second.Passages[i].Score)
	}
}

func TestHybridRetrieveFusesAndDeduplicates(t *testing.T) {
	graph := &mockSearcher{HitsByQuery: map[string][]model.ScoredPassage{
		"q": {{Passage: passage("p1", "one"), Score: 1.0}},
	}}
	hippo := &mockSearcher{HitsByQuery: map[string][]model.ScoredPassage{
		"q": {
			{Passage: passage("p1", "one"), Score: 1.0},
			{Passage: passage("p2", "two"), Score: 0.4},
		},
	}}
	h := newHybrid(graph, hippo, &mockExtractor{}, nil, nil)

	res, err := h.HybridRetrieve(context.Background(), "q", 10)
	require.NoError(t, err)

	ids := make(map[string]int)
	for _, sp := range res.Passages {
		ids[sp.Passage.ID]++
	}
	assert.Equal(t, 1, ids["p1"])
	assert.Equal(t, 1, ids["p2"])
	// p1 tops both components at full normalized score; p2 only one.
	assert.Equal(t, "p1", res.Passages[0].Passage.ID)
}

func TestHybridRetrieveToleratesSubRetrieverFailure(t *testing.T) {
	graph := &mockSearcher{Err: model.ErrStoreUnavailable}
	hippo := &mockSearcher{HitsByQuery: map[string][]model.ScoredPassage{
		"q": {{Passage: passage("p1", "one"), Score: 1.0}},
	}}
	h := newHybrid(graph, hippo, &mockExtractor{}, nil, nil)

	res, err := h.HybridRetrieve(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, res.Passages, 1)
	assert.GreaterOrEqual(t, res.Stats.SuccessfulSearches, 1)
	assert.Nil(t, res.GraphHits)
	assert.NotEmpty(t, res.HippoHits)
}

func TestHybridRetrieveAllFailed(t *testing.T) {
	graph := &mockSearcher{Err: model.ErrStoreUnavailable}
	hippo := &mockSearcher{Err: model.ErrStoreUnavailable}
	h := newHybrid(graph, hippo, &mockExtractor{Err: model.ErrStoreUnavailable}, nil, nil)

	_, err := h.HybridRetrieve(context.Background(), "q", 10)
	assert.True(t, errors.Is(err, model.ErrRetrievalUnavailable))
}

func TestHybridRetrieveConceptBranches(t *testing.T) {
	ctx := context.Background()

	idx := vector.NewMemoryIndex(2)
	require.NoError(t, idx.Upsert(ctx, "c1", vector.KindConcept, []float32{1, 0}))

	store := &mockGraphStore{
		ConceptPassages: map[string][]model.Passage{
			"c1": {passage("p5", "expansion passage")},
		},
	}

	graph := &mockSearcher{HitsByQuery: map[string][]model.ScoredPassage{
		"q":         {{Passage: passage("p1", "one"), Score: 1.0}},
		"indemnity": {{Passage: passage("p4", "concept hit"), Score: 1.0}},
	}}
	hippo := &mockSearcher{HitsByQuery: map[string][]model.ScoredPassage{}}
	extractor := &mockExtractor{Concepts: []model.Concept{
		{ID: "concept:indemnity", Text: "indemnity", Embedding: []float32{1, 0}},
	}}

	h := newHybrid(graph, hippo, extractor, idx, store)
	res, err := h.HybridRetrieve(ctx, "q", 10)
	require.NoError(t, err)

	assert.Len(t, res.ConceptHits, 1)
	assert.Len(t, res.ConceptExpansionHits, 1)
	assert.Equal(t, 4, res.Stats.SuccessfulSearches)

	ids := make(map[string]bool)
	for _, sp := range res.Passages {
		ids[sp.Passage.ID] = true
	}
	assert.True(t, ids["p1"] && ids["p4"] && ids["p5"])
}

func TestHybridRetrieveTruncatesToTopN(t *testing.T) {
	hits := make([]model.ScoredPassage, 0, 8)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		hits = append(hits, model.ScoredPassage{Passage: passage(id, id), Score: 1.0})
	}
	graph := &mockSearcher{HitsByQuery: map[string][]model.ScoredPassage{"q": hits}}
	hippo := &mockSearcher{HitsByQuery: map[string][]model.ScoredPassage{}}
	h := newHybrid(graph, hippo, &mockExtractor{}, nil, nil)

	res, err := h.HybridRetrieve(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, res.Passages, 3)
	// Ties resolved by id ascending.
	assert.Equal(t, "a", res.Passages[0].Passage.ID)
	assert.Equal(t, "b", res.Passages[1].Passage.ID)
	assert.Equal(t, "c", res.Passages[2].Passage.ID)
}
