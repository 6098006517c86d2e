package retriever

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/driver"
)

const (
	maxSeedConcepts = 5
	seedSearchK     = 10

	textWeight    = 0.5
	graphWeight   = 0.3
	overlapWeight = 0.2
)

// EnhancedLKGRetriever resolves a query into seed graph nodes via full-text
// search, expands one hop, and ranks the passages attached to the visited
// nodes.
type EnhancedLKGRetriever struct {
	Store     driver.GraphStore
	Extractor ConceptExtractor
	log       *zap.Logger
}

func NewEnhancedLKGRetriever(store driver.GraphStore, extractor ConceptExtractor, log *zap.Logger) *EnhancedLKGRetriever {
	return &EnhancedLKGRetriever{Store: store, Extractor: extractor, log: log}
}

type candidate struct {
	passage   model.Passage
	textScore float64
	hops      int
}

// Search returns the top-k passages grounded in graph-proximal evidence.
// Zero seeds yield an empty result; store errors are surfaced to the caller.
func (r *EnhancedLKGRetriever) Search(ctx context.Context, query string, k int) ([]model.ScoredPassage, error) {
	seeds := r.seedTerms(ctx, query)
	if len(seeds) == 0 {
		return nil, nil
	}

	candidates := make(map[string]*candidate)
	visited := make(map[string]bool)
	var maxTextScore float64

	for _, seed := range seeds {
		passages, err := r.Store.FulltextPassageSearch(ctx, seed, seedSearchK)
		if err != nil {
			return nil, err
		}
		// The store orders by text score descending; translate rank into a
		// normalized score since the raw Lucene score is index dependent.
		for rank, p := range passages {
			score := 1.0 / float64(rank+1)
			if score > maxTextScore {
				maxTextScore = score
			}
			upsertCandidate(candidates, p, score, 0)
		}

		nodes, err := r.Store.FulltextNodeSearch(ctx, seed, seedSearchK)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if visited[n.ID] {
				continue
			}
			visited[n.ID] = true
			if err := r.collectNodePassages(ctx, n.ID, 1, candidates); err != nil {
				return nil, err
			}

			neighbors, err := r.Store.Neighbors(ctx, n.ID, 1, "")
			if err != nil {
				return nil, err
			}
			for _, nb := range neighbors {
				if visited[nb.ID] {
					continue
				}
				visited[nb.ID] = true
				if err := r.collectNodePassages(ctx, nb.ID, 2, candidates); err != nil {
					return nil, err
				}
			}
		}
	}

	return rankCandidates(candidates, seeds, maxTextScore, k), nil
}

func (r *EnhancedLKGRetriever) collectNodePassages(ctx context.Context, nodeID string, hops int, candidates map[string]*candidate) error {
	passages, err := r.Store.PassagesForNode(ctx, nodeID)
	if err != nil {
		return err
	}
	for _, p := range passages {
		upsertCandidate(candidates, p, 0, hops)
	}
	return nil
}

// seedTerms is the raw query plus its top extracted concepts. Extraction
// failures degrade to query-only seeding rather than failing the search.
func (r *EnhancedLKGRetriever) seedTerms(ctx context.Context, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	seeds := []string{query}

	concepts, err := r.Extractor.Extract(ctx, query)
	if err != nil {
		r.log.Warn("seed concept extraction failed", zap.Error(err))
		return seeds
	}
	for i, c := range concepts {
		if i == maxSeedConcepts {
			break
		}
		if !strings.EqualFold(c.Text, query) {
			seeds = append(seeds, c.Text)
		}
	}
	return seeds
}

func upsertCandidate(candidates map[string]*candidate, p model.Passage, textScore float64, hops int) {
	if existing, ok := candidates[p.ID]; ok {
		if textScore > existing.textScore {
			existing.textScore = textScore
		}
		if hops < existing.hops {
			existing.hops = hops
		}
		return
	}
	candidates[p.ID] = &candidate{passage: p, textScore: textScore, hops: hops}
}

func rankCandidates(candidates map[string]*candidate, seeds []string, maxTextScore float64, k int) []model.ScoredPassage {
	lowerSeeds := make([]string, len(seeds))
	for i, s := range seeds {
		lowerSeeds[i] = strings.ToLower(s)
	}

	scored := make([]model.ScoredPassage, 0, len(candidates))
	for _, c := range candidates {
		textComponent := 0.0
		if maxTextScore > 0 {
			textComponent = c.textScore / maxTextScore
		}
		graphComponent := 1.0 / float64(1+c.hops)
		overlap := 0
		lowerText := strings.ToLower(c.passage.Text)
		for _, s := range lowerSeeds {
			if strings.Contains(lowerText, s) {
				overlap++
			}
		}
		score := textWeight*textComponent + graphWeight*graphComponent + overlapWeight*float64(overlap)
		scored = append(scored, model.ScoredPassage{Passage: c.passage, Score: score, Hops: c.hops})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Passage.ID < scored[j].Passage.ID
	})
	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
