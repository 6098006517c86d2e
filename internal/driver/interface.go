package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/wnsgho/legal-full/internal/core/model"
)

// GraphDriver is the thin Cypher execution surface over the graph engine.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	Close(ctx context.Context) error
}

// GraphStore exposes the typed read operations the retrievers need. The
// analyzer never writes through this interface; ingestion owns all writes.
type GraphStore interface {
	FulltextNodeSearch(ctx context.Context, query string, k int) ([]model.Node, error)
	FulltextPassageSearch(ctx context.Context, query string, k int) ([]model.Passage, error)
	Neighbors(ctx context.Context, nodeID string, depth int, typeFilter string) ([]model.Node, error)
	PassagesForNode(ctx context.Context, nodeID string) ([]model.Passage, error)
	PassagesByIDs(ctx context.Context, ids []string) ([]model.Passage, error)
	ConceptsForText(ctx context.Context, text string) ([]model.Concept, error)
	PassagesForConcept(ctx context.Context, conceptID string) ([]model.Passage, error)
	ListDatabases(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (GraphStats, error)
}

// GraphStats summarizes the indexed corpus for operational endpoints.
type GraphStats struct {
	Nodes    int64 `json:"nodes"`
	Passages int64 `json:"passages"`
	Concepts int64 `json:"concepts"`
	Edges    int64 `json:"edges"`
}
