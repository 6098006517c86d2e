package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/checklist"
	"github.com/wnsgho/legal-full/internal/core/model"
)

func newPartAnalyzer(t *testing.T, retriever HybridRetriever, client *mockLLM) *PartRiskAnalyzer {
	t.Helper()
	catalog, err := checklist.Load()
	require.NoError(t, err)
	a := NewPartRiskAnalyzer(catalog, retriever, client, zap.NewNop())
	a.RateLimitDelay = 0
	return a
}

func TestAnalyzePartAllDanger(t *testing.T) {
	client := &mockLLM{Response: `{"status":"DANGER","risk_score":5,"analysis":"x","recommendation":"y"}`}
	a := newPartAnalyzer(t, &mockRetriever{}, client)

	result, err := a.AnalyzePart(context.Background(), 1, "some contract text")
	require.NoError(t, err)

	part := a.Catalog.Part(1)
	assert.Equal(t, model.PartOK, result.Status)
	assert.Len(t, result.ChecklistResults, len(part.DeepDiveChecklist))
	assert.Equal(t, 5.0, result.RiskScore)
	assert.Equal(t, model.RiskCritical, result.RiskLevel)
	assert.LessOrEqual(t, len(result.Recommendations), 5)
	// Identical recommendations collapse to one.
	assert.Len(t, result.Recommendations, 1)
}

func TestAnalyzePartNonJSONResponses(t *testing.T) {
	client := &mockLLM{Response: "I cannot answer in JSON, sorry"}
	a := newPartAnalyzer(t, &mockRetriever{}, client)

	result, err := a.AnalyzePart(context.Background(), 2, "contract text")
	require.NoError(t, err)

	assert.Equal(t, model.PartOK, result.Status)
	for _, item := range result.ChecklistResults {
		assert.Equal(t, model.StatusWarn, item.Status)
		assert.Equal(t, 2, item.RiskScore)
		assert.Equal(t, "parse_error", item.Analysis)
	}
	assert.Equal(t, 2.0, result.RiskScore)
	assert.Equal(t, model.RiskMedium, result.RiskLevel)
}

func TestAnalyzePartLLMPermanentFailure(t *testing.T) {
	client := &mockLLM{Err: model.ErrLLMPermanent}
	a := newPartAnalyzer(t, &mockRetriever{}, client)

	result, err := a.AnalyzePart(context.Background(), 1, "contract text")
	require.NoError(t, err)

	assert.Equal(t, model.PartOK, result.Status)
	assert.Equal(t, 2.0, result.RiskScore)
	for _, item := range result.ChecklistResults {
		assert.Equal(t, "parse_error", item.Analysis)
	}
}

func TestAnalyzePartEmptyContract(t *testing.T) {
	a := newPartAnalyzer(t, &mockRetriever{}, &mockLLM{})

	result, err := a.AnalyzePart(context.Background(), 1, "   ")
	require.NoError(t, err)
	assert.Equal(t, model.PartFailed, result.Status)
	assert.Equal(t, "no_context", result.FailReason)
	assert.Empty(t, result.ChecklistResults)
}

func TestAnalyzePartUnknownPart(t *testing.T) {
	a := newPartAnalyzer(t, &mockRetriever{}, &mockLLM{})
	_, err := a.AnalyzePart(context.Background(), 42, "contract")
	assert.ErrorIs(t, err, model.ErrBadInput)
}

func TestAnalyzePartRetrievalUnavailable(t *testing.T) {
	retriever := &mockRetriever{Err: model.ErrRetrievalUnavailable}
	a := newPartAnalyzer(t, retriever, &mockLLM{})

	result, err := a.AnalyzePart(context.Background(), 1, "contract")
	require.NoError(t, err)
	assert.Equal(t, model.PartFailed, result.Status)
	assert.Equal(t, "retrieval_unavailable", result.FailReason)
	// All three part queries were attempted before giving up.
	assert.Len(t, retriever.Calls, 3)
}

func TestAnalyzePartIssuesThreeQueries(t *testing.T) {
	retriever := &mockRetriever{}
	client := &mockLLM{Response: `{"status":"PASS","risk_score":0,"analysis":"","recommendation":""}`}
	a := newPartAnalyzer(t, retriever, client)

	part := a.Catalog.Part(3)
	result, err := a.AnalyzePart(context.Background(), 3, "contract")
	require.NoError(t, err)

	require.Len(t, retriever.Calls, 3)
	assert.Equal(t, part.CoreQuestion, retriever.Calls[0])
	assert.Equal(t, part.TopRiskPattern, retriever.Calls[1])
	assert.Equal(t, len(part.DeepDiveChecklist), len(client.Prompts))
	assert.Equal(t, []string{"Clause one.", "Clause two."}, result.RelevantClauses)
	assert.GreaterOrEqual(t, result.SearchStats.SuccessfulSearches, 1)
}

func TestAnalyzePartCancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	client := &countingLLM{
		fn: func() (string, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return `{"status":"PASS","risk_score":1,"analysis":"","recommendation":""}`, nil
		},
	}
	a := newPartAnalyzerWithClient(t, &mockRetriever{}, client)

	result, err := a.AnalyzePart(ctx, 1, "contract")
	require.NoError(t, err)
	assert.Equal(t, model.PartFailed, result.Status)
	assert.Equal(t, "canceled", result.FailReason)
	assert.NotEmpty(t, result.ChecklistResults)
	part := a.Catalog.Part(1)
	assert.Less(t, len(result.ChecklistResults), len(part.DeepDiveChecklist))
}

func TestAnalyzePartTimeout(t *testing.T) {
	client := &countingLLM{
		fn: func() (string, error) {
			time.Sleep(20 * time.Millisecond)
			return `{"status":"PASS","risk_score":0,"analysis":"","recommendation":""}`, nil
		},
	}
	a := newPartAnalyzerWithClient(t, &mockRetriever{}, client)
	a.PartTimeout = 30 * time.Millisecond

	result, err := a.AnalyzePart(context.Background(), 1, "contract")
	require.NoError(t, err)
	assert.Equal(t, model.PartFailed, result.Status)
	assert.Equal(t, "timeout", result.FailReason)
}

type countingLLM struct {
	fn func() (string, error)
}

func (c *countingLLM) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.fn()
}

func newPartAnalyzerWithClient(t *testing.T, retriever HybridRetriever, client *countingLLM) *PartRiskAnalyzer {
	t.Helper()
	catalog, err := checklist.Load()
	require.NoError(t, err)
	a := NewPartRiskAnalyzer(catalog, retriever, client, zap.NewNop())
	a.RateLimitDelay = 0
	return a
}
