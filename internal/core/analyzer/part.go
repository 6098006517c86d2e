package analyzer

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/checklist"
	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/llm"
)

const (
	// maxRelevantClauses caps the union of the three searches.
	maxRelevantClauses = 30

	failReasonNoContext = "no_context"
	failReasonCanceled  = "canceled"
	failReasonTimeout   = "timeout"
	failReasonRetrieval = "retrieval_unavailable"
)

// HybridRetriever is the analyzer's view of the retrieval engine.
type HybridRetriever interface {
	HybridRetrieve(ctx context.Context, query string, topN int) (*model.HybridResult, error)
}

// PartRiskAnalyzer scores one checklist part against a contract: three
// hybrid retrievals, one LLM call per checklist item, then aggregation.
type PartRiskAnalyzer struct {
	Catalog        *checklist.Catalog
	Retriever      HybridRetriever
	LLM            llm.LLMClient
	RateLimitDelay time.Duration
	PartTimeout    time.Duration
	TopN           int
	log            *zap.Logger
}

func NewPartRiskAnalyzer(catalog *checklist.Catalog, retriever HybridRetriever, client llm.LLMClient, log *zap.Logger) *PartRiskAnalyzer {
	return &PartRiskAnalyzer{
		Catalog:        catalog,
		Retriever:      retriever,
		LLM:            client,
		RateLimitDelay: 2 * time.Second,
		PartTimeout:    5 * time.Minute,
		TopN:           15,
		log:            log,
	}
}

// AnalyzePart runs one part to a PartResult. In-part failures (retrieval
// loss, timeout, cancellation) are reported in the result's Status with the
// items completed so far retained; an error is returned only for an unknown
// part number.
func (a *PartRiskAnalyzer) AnalyzePart(ctx context.Context, partNumber int, contractText string) (model.PartResult, error) {
	part := a.Catalog.Part(partNumber)
	if part == nil {
		return model.PartResult{}, model.Faultf(model.ErrBadInput, "part %d not in catalog", partNumber)
	}

	start := time.Now()
	result := model.PartResult{
		PartNumber:       partNumber,
		PartTitle:        part.Title,
		Status:           model.PartOK,
		ChecklistResults: []model.ItemResult{},
		RelevantClauses:  []string{},
		Recommendations:  []string{},
	}

	if strings.TrimSpace(contractText) == "" {
		result.Status = model.PartFailed
		result.FailReason = failReasonNoContext
		result.RiskLevel = model.RiskLow
		result.DurationSeconds = time.Since(start).Seconds()
		return result, nil
	}

	partCtx, cancel := context.WithTimeout(ctx, a.PartTimeout)
	defer cancel()

	clauses, stats, err := a.retrieve(partCtx, part)
	result.SearchStats = stats
	if err != nil {
		result.Status = model.PartFailed
		result.FailReason = a.failReason(ctx, partCtx, err, failReasonRetrieval)
		result.DurationSeconds = time.Since(start).Seconds()
		return result, nil
	}
	result.RelevantClauses = clauses

	for i, item := range part.DeepDiveChecklist {
		if i > 0 {
			if err := a.pause(partCtx); err != nil {
				a.finishInterrupted(ctx, partCtx, &result, start)
				return result, nil
			}
		}
		if partCtx.Err() != nil {
			a.finishInterrupted(ctx, partCtx, &result, start)
			return result, nil
		}

		outcome := a.analyzeItem(partCtx, part, item, clauses)
		if partCtx.Err() != nil && outcome.Result == nil && outcome.RawResponse == "" {
			a.finishInterrupted(ctx, partCtx, &result, start)
			return result, nil
		}
		result.ChecklistResults = append(result.ChecklistResults, outcome.FallbackResult(item.Text))
	}

	a.aggregate(&result)
	result.DurationSeconds = time.Since(start).Seconds()
	return result, nil
}

// retrieve executes the three part-derived queries sequentially and unions
// their passages, keeping the highest fused score per passage.
func (a *PartRiskAnalyzer) retrieve(ctx context.Context, part *checklist.Part) ([]string, model.SearchStats, error) {
	queries := []string{
		part.CoreQuestion,
		part.TopRiskPattern,
		strings.Join(part.CrossClauseAnalysis, " "),
	}

	stats := model.SearchStats{
		Queries:          []string{},
		SubRetrieverHits: make(map[string]int),
	}

	type merged struct {
		passage model.Passage
		score   float64
	}
	union := make(map[string]*merged)
	var order []string
	succeeded := 0
	var lastErr error

	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		stats.Queries = append(stats.Queries, q)
		res, err := a.Retriever.HybridRetrieve(ctx, q, a.TopN)
		if err != nil {
			lastErr = err
			a.log.Warn("hybrid retrieval failed", zap.String("query", q), zap.Error(err))
			if ctx.Err() != nil {
				return nil, stats, ctx.Err()
			}
			continue
		}
		succeeded++
		stats.SuccessfulSearches += res.Stats.SuccessfulSearches
		for name, n := range res.Stats.SubRetrieverHits {
			stats.SubRetrieverHits[name] += n
		}
		for _, sp := range res.Passages {
			m, ok := union[sp.Passage.ID]
			if !ok {
				union[sp.Passage.ID] = &merged{passage: sp.Passage, score: sp.Score}
				order = append(order, sp.Passage.ID)
				continue
			}
			if sp.Score > m.score {
				m.score = sp.Score
			}
		}
	}

	if succeeded == 0 {
		if lastErr == nil {
			lastErr = model.ErrRetrievalUnavailable
		}
		return nil, stats, lastErr
	}

	ranked := make([]merged, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *union[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].passage.ID < ranked[j].passage.ID
	})
	if len(ranked) > maxRelevantClauses {
		ranked = ranked[:maxRelevantClauses]
	}

	clauses := make([]string, len(ranked))
	for i, m := range ranked {
		clauses[i] = m.passage.Text
	}
	stats.TotalClausesFound = len(clauses)
	return clauses, stats, nil
}

// analyzeItem issues one completion for the item, with the single-shot
// repair pass on unparseable output. LLM errors surface as a parse failure
// so the item falls back and the part continues.
func (a *PartRiskAnalyzer) analyzeItem(ctx context.Context, part *checklist.Part, item checklist.Item, clauses []string) model.ItemOutcome {
	response, err := a.LLM.Generate(ctx, buildItemPrompt(part, item, clauses))
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			a.log.Warn("item analysis failed", zap.String("item", item.Text), zap.Error(err))
		}
		return model.ItemOutcome{ParseFailed: true}
	}

	outcome := parseItemResponse(item.Text, response)
	if outcome.ParseFailed {
		outcome = repairItemResponse(ctx, a.LLM, item.Text, outcome)
	}
	return outcome
}

func (a *PartRiskAnalyzer) aggregate(result *model.PartResult) {
	result.RiskScore = model.MeanItemScore(result.ChecklistResults)
	result.RiskLevel = model.LevelForScore(result.RiskScore)
	result.Recommendations = model.TopRecommendations(result.ChecklistResults)
}

// pause is the cooperative inter-call delay, interruptible by cancellation.
func (a *PartRiskAnalyzer) pause(ctx context.Context) error {
	if a.RateLimitDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(a.RateLimitDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// finishInterrupted closes out a part cut short by cancellation or the part
// timeout, keeping the items completed so far.
func (a *PartRiskAnalyzer) finishInterrupted(parent, partCtx context.Context, result *model.PartResult, start time.Time) {
	result.Status = model.PartFailed
	result.FailReason = a.failReason(parent, partCtx, partCtx.Err(), failReasonTimeout)
	a.aggregate(result)
	result.DurationSeconds = time.Since(start).Seconds()
}

// failReason distinguishes caller cancellation from the part deadline.
func (a *PartRiskAnalyzer) failReason(parent, partCtx context.Context, err error, fallback string) string {
	switch {
	case parent.Err() != nil:
		return failReasonCanceled
	case errors.Is(partCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return failReasonTimeout
	case errors.Is(err, model.ErrRetrievalUnavailable), errors.Is(err, model.ErrStoreUnavailable):
		return failReasonRetrieval
	default:
		return fallback
	}
}
