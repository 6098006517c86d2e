package driver

import (
	"context"
	"errors"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/model"
)

const storeRetryBase = 250 * time.Millisecond

// Store implements GraphStore on top of a GraphDriver, retrying transient
// connection loss with exponential backoff before surfacing the error.
type Store struct {
	Driver     GraphDriver
	MaxRetries int
	log        *zap.Logger
}

func NewStore(d GraphDriver, maxRetries int, log *zap.Logger) *Store {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Store{Driver: d, MaxRetries: maxRetries, log: log}
}

func (s *Store) run(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	var lastErr error
	delay := storeRetryBase
	for attempt := 0; attempt < s.MaxRetries; attempt++ {
		res, err := s.Driver.ExecuteQuery(ctx, query, params)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !errors.Is(err, model.ErrStoreUnavailable) {
			return neo4j.EagerResult{}, err
		}
		s.log.Warn("graph store unavailable, retrying",
			zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return neo4j.EagerResult{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return neo4j.EagerResult{}, lastErr
}

func (s *Store) FulltextNodeSearch(ctx context.Context, query string, k int) ([]model.Node, error) {
	res, err := s.run(ctx, FulltextNodeSearchQuery, map[string]interface{}{"query": query, "k": k})
	if err != nil {
		return nil, err
	}
	return nodesFromRecords(res.Records), nil
}

func (s *Store) FulltextPassageSearch(ctx context.Context, query string, k int) ([]model.Passage, error) {
	res, err := s.run(ctx, FulltextPassageSearchQuery, map[string]interface{}{"query": query, "k": k})
	if err != nil {
		return nil, err
	}
	return passagesFromRecords(res.Records), nil
}

// Neighbors expands from a node. Depth is capped at 2; the graph is cyclic
// between Concepts and Nodes, so expansion never recurses past the cap and
// duplicate ids are collapsed by the DISTINCT in the query.
func (s *Store) Neighbors(ctx context.Context, nodeID string, depth int, typeFilter string) ([]model.Node, error) {
	query := NeighborsDepth1Query
	if depth >= 2 {
		query = NeighborsDepth2Query
	}
	res, err := s.run(ctx, query, map[string]interface{}{"node_id": nodeID, "type": typeFilter})
	if err != nil {
		return nil, err
	}
	return nodesFromRecords(res.Records), nil
}

func (s *Store) PassagesForNode(ctx context.Context, nodeID string) ([]model.Passage, error) {
	res, err := s.run(ctx, PassagesForNodeQuery, map[string]interface{}{"node_id": nodeID})
	if err != nil {
		return nil, err
	}
	return passagesFromRecords(res.Records), nil
}

func (s *Store) PassagesByIDs(ctx context.Context, ids []string) ([]model.Passage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	res, err := s.run(ctx, PassagesByIDsQuery, map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}
	return passagesFromRecords(res.Records), nil
}

func (s *Store) ConceptsForText(ctx context.Context, text string) ([]model.Concept, error) {
	res, err := s.run(ctx, ConceptsForTextQuery, map[string]interface{}{"text": text})
	if err != nil {
		return nil, err
	}
	var concepts []model.Concept
	for _, rec := range res.Records {
		concepts = append(concepts, model.Concept{
			ID:   stringValue(rec, "id"),
			Text: stringValue(rec, "text"),
		})
	}
	return concepts, nil
}

func (s *Store) PassagesForConcept(ctx context.Context, conceptID string) ([]model.Passage, error) {
	res, err := s.run(ctx, PassagesForConceptQuery, map[string]interface{}{"concept_id": conceptID})
	if err != nil {
		return nil, err
	}
	return passagesFromRecords(res.Records), nil
}

func (s *Store) ListDatabases(ctx context.Context) ([]string, error) {
	res, err := s.run(ctx, ListDatabasesQuery, nil)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, rec := range res.Records {
		names = append(names, stringValue(rec, "name"))
	}
	return names, nil
}

func (s *Store) Stats(ctx context.Context) (GraphStats, error) {
	res, err := s.run(ctx, StatsQuery, nil)
	if err != nil {
		return GraphStats{}, err
	}
	if len(res.Records) == 0 {
		return GraphStats{}, nil
	}
	rec := res.Records[0]
	return GraphStats{
		Nodes:    intValue(rec, "nodes"),
		Passages: intValue(rec, "passages"),
		Concepts: intValue(rec, "concepts"),
		Edges:    intValue(rec, "edges"),
	}, nil
}

func nodesFromRecords(records []*neo4j.Record) []model.Node {
	var nodes []model.Node
	for _, rec := range records {
		labels := []string{}
		if raw, ok := rec.Get("labels"); ok && raw != nil {
			if list, ok := raw.([]interface{}); ok {
				for _, l := range list {
					if s, ok := l.(string); ok {
						labels = append(labels, s)
					}
				}
			}
		}
		nodes = append(nodes, model.Node{
			ID:        stringValue(rec, "id"),
			Name:      stringValue(rec, "name"),
			Labels:    labels,
			NumericID: intValue(rec, "numeric_id"),
		})
	}
	return nodes
}

func passagesFromRecords(records []*neo4j.Record) []model.Passage {
	var passages []model.Passage
	for _, rec := range records {
		passages = append(passages, model.Passage{
			ID:       stringValue(rec, "id"),
			Text:     stringValue(rec, "text"),
			SourceID: stringValue(rec, "source_id"),
			Position: int(intValue(rec, "position")),
		})
	}
	return passages
}

func stringValue(rec *neo4j.Record, key string) string {
	if raw, ok := rec.Get(key); ok && raw != nil {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}

func intValue(rec *neo4j.Record, key string) int64 {
	if raw, ok := rec.Get(key); ok && raw != nil {
		switch v := raw.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
