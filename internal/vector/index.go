package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/wnsgho/legal-full/internal/core/model"
)

// Kind partitions index entries so searches can be filtered to one record
// family without separate indices per family.
type Kind string

const (
	KindPassage Kind = "passage"
	KindConcept Kind = "concept"
	KindNode    Kind = "node"
)

// Hit is one nearest-neighbor result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Index is an approximate nearest-neighbor index over fixed-dimension
// embeddings, cosine similarity, deterministic top-k with ties broken by id
// ascending. Upsert is only invoked by ingestion.
type Index interface {
	Upsert(ctx context.Context, id string, kind Kind, vec []float32) error
	Search(ctx context.Context, vec []float32, k int, kind Kind) ([]Hit, error)
	Get(ctx context.Context, id string) ([]float32, error)
	Dimension() int
}

type memoryEntry struct {
	kind Kind
	vec  []float32
}

// MemoryIndex is the in-process implementation, exact rather than
// approximate. It backs tests and small corpora.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]memoryEntry
}

func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{
		dimension: dimension,
		entries:   make(map[string]memoryEntry),
	}
}

func (m *MemoryIndex) Dimension() int {
	return m.dimension
}

func (m *MemoryIndex) Upsert(_ context.Context, id string, kind Kind, vec []float32) error {
	if len(vec) != m.dimension {
		return model.Faultf(model.ErrBadInput, "embedding dimension %d, index expects %d", len(vec), m.dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{kind: kind, vec: append([]float32(nil), vec...)}
	return nil
}

func (m *MemoryIndex) Get(_ context.Context, id string) ([]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, model.Faultf(model.ErrNotFound, "vector %s", id)
	}
	return append([]float32(nil), e.vec...), nil
}

func (m *MemoryIndex) Search(_ context.Context, vec []float32, k int, kind Kind) ([]Hit, error) {
	if len(vec) != m.dimension {
		return nil, model.Faultf(model.ErrBadInput, "query dimension %d, index expects %d", len(vec), m.dimension)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.entries))
	for id, e := range m.entries {
		if kind != "" && e.kind != kind {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: Cosine(vec, e.vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Cosine returns the cosine similarity of two equal-length vectors.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ Index = (*MemoryIndex)(nil)
