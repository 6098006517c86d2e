package retriever

import (
	"context"

	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/driver"
)

type mockGraphStore struct {
	NodesByQuery    map[string][]model.Node
	PassagesByQuery map[string][]model.Passage
	NeighborsByNode map[string][]model.Node
	PassagesByNode  map[string][]model.Passage
	ConceptPassages map[string][]model.Passage
	Passages        map[string]model.Passage
	Err             error
}

func (m *mockGraphStore) FulltextNodeSearch(_ context.Context, query string, k int) ([]model.Node, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	nodes := m.NodesByQuery[query]
	if len(nodes) > k {
		nodes = nodes[:k]
	}
	return nodes, nil
}

func (m *mockGraphStore) FulltextPassageSearch(_ context.Context, query string, k int) ([]model.Passage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	passages := m.PassagesByQuery[query]
	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

func (m *mockGraphStore) Neighbors(_ context.Context, nodeID string, _ int, _ string) ([]model.Node, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.NeighborsByNode[nodeID], nil
}

func (m *mockGraphStore) PassagesForNode(_ context.Context, nodeID string) ([]model.Passage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.PassagesByNode[nodeID], nil
}

func (m *mockGraphStore) PassagesByIDs(_ context.Context, ids []string) ([]model.Passage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.Passage
	for _, id := range ids {
		if p, ok := m.Passages[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockGraphStore) ConceptsForText(_ context.Context, _ string) ([]model.Concept, error) {
	return nil, m.Err
}

func (m *mockGraphStore) PassagesForConcept(_ context.Context, conceptID string) ([]model.Passage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.ConceptPassages[conceptID], nil
}

func (m *mockGraphStore) ListDatabases(_ context.Context) ([]string, error) {
	return []string{"neo4j"}, m.Err
}

func (m *mockGraphStore) Stats(_ context.Context) (driver.GraphStats, error) {
	return driver.GraphStats{}, m.Err
}

type mockSearcher struct {
	HitsByQuery map[string][]model.ScoredPassage
	Err         error
	Calls       []string
}

func (m *mockSearcher) Search(_ context.Context, query string, k int) ([]model.ScoredPassage, error) {
	m.Calls = append(m.Calls, query)
	if m.Err != nil {
		return nil, m.Err
	}
	hits := m.HitsByQuery[query]
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

type mockExtractor struct {
	Concepts []model.Concept
	Err      error
}

func (m *mockExtractor) Extract(_ context.Context, _ string) ([]model.Concept, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Concepts, nil
}

type mockEmbedder struct {
	Vector []float32
	Err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		v, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

type mockReranker struct {
	Order []int
	Err   error
}

func (m *mockReranker) Rank(_ context.Context, _ string, docs []string) ([]int, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Order != nil {
		return m.Order, nil
	}
	order := make([]int, len(docs))
	for i := range order {
		order[i] = i
	}
	return order, nil
}

func passage(id, text string) model.Passage {
	return model.Passage{ID: id, Text: text, SourceID: "contract-1"}
}
