package analyzer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/checklist"
	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/llm"
)

const (
	// defaultWindowTokens approximates the contract-text budget of one
	// completion after prompt scaffolding.
	defaultWindowTokens = 6000
	chunkOverlap        = 0.10
)

// GPTRiskAnalyzer is the retrieval-free baseline: the raw contract text,
// chunked to the model's context window, stands in for retrieved clauses.
// It keeps the analyzer contract so the orchestrator can swap it in when
// the graph or vector store is down.
type GPTRiskAnalyzer struct {
	Catalog        *checklist.Catalog
	LLM            llm.LLMClient
	RateLimitDelay time.Duration
	PartTimeout    time.Duration
	WindowTokens   int
	log            *zap.Logger

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

func NewGPTRiskAnalyzer(catalog *checklist.Catalog, client llm.LLMClient, log *zap.Logger) *GPTRiskAnalyzer {
	return &GPTRiskAnalyzer{
		Catalog:        catalog,
		LLM:            client,
		RateLimitDelay: 2 * time.Second,
		PartTimeout:    5 * time.Minute,
		WindowTokens:   defaultWindowTokens,
		log:            log,
	}
}

func (a *GPTRiskAnalyzer) AnalyzePart(ctx context.Context, partNumber int, contractText string) (model.PartResult, error) {
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
		SearchStats:      model.SearchStats{Queries: []string{}},
	}

	if strings.TrimSpace(contractText) == "" {
		result.Status = model.PartFailed
		result.FailReason = failReasonNoContext
		result.RiskLevel = model.RiskLow
		result.DurationSeconds = time.Since(start).Seconds()
		return result, nil
	}

	chunks := a.chunk(contractText)
	// Aggregation across windows is unspecified upstream; the first window
	// is analyzed and truncation is reported through the search stats.
	window := chunks[0]
	if len(chunks) > 1 {
		a.log.Warn("contract exceeds context window, analyzing first chunk",
			zap.Int("chunks", len(chunks)), zap.Int("part", partNumber))
		result.SearchStats.Queries = append(result.SearchStats.Queries, "truncated_to_first_chunk")
	}

	partCtx, cancel := context.WithTimeout(ctx, a.PartTimeout)
	defer cancel()

	delegate := &PartRiskAnalyzer{
		Catalog:        a.Catalog,
		LLM:            a.LLM,
		RateLimitDelay: a.RateLimitDelay,
		log:            a.log,
	}

	for i, item := range part.DeepDiveChecklist {
		if i > 0 {
			if err := delegate.pause(partCtx); err != nil {
				delegate.finishInterrupted(ctx, partCtx, &result, start)
				return result, nil
			}
		}
		if partCtx.Err() != nil {
			delegate.finishInterrupted(ctx, partCtx, &result, start)
			return result, nil
		}

		outcome := delegate.analyzeItem(partCtx, part, item, []string{window})
		if partCtx.Err() != nil && outcome.Result == nil && outcome.RawResponse == "" {
			delegate.finishInterrupted(ctx, partCtx, &result, start)
			return result, nil
		}
		result.ChecklistResults = append(result.ChecklistResults, outcome.FallbackResult(item.Text))
	}

	delegate.aggregate(&result)
	result.DurationSeconds = time.Since(start).Seconds()
	return result, nil
}

// chunk splits the contract into windows of WindowTokens with 10% overlap.
// Tokenization falls back to whitespace words when the encoding is
// unavailable offline.
func (a *GPTRiskAnalyzer) chunk(text string) []string {
	a.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			a.log.Warn("tiktoken unavailable, chunking by words", zap.Error(err))
			return
		}
		a.enc = enc
	})

	window := a.WindowTokens
	if window <= 0 {
		window = defaultWindowTokens
	}
	step := window - int(float64(window)*chunkOverlap)
	if step <= 0 {
		step = window
	}

	if a.enc != nil {
		tokens := a.enc.Encode(text, nil, nil)
		if len(tokens) <= window {
			return []string{text}
		}
		var chunks []string
		for startTok := 0; startTok < len(tokens); startTok += step {
			end := startTok + window
			if end > len(tokens) {
				end = len(tokens)
			}
			chunks = append(chunks, a.enc.Decode(tokens[startTok:end]))
			if end == len(tokens) {
				break
			}
		}
		return chunks
	}

	words := strings.Fields(text)
	if len(words) <= window {
		return []string{text}
	}
	var chunks []string
	for startWord := 0; startWord < len(words); startWord += step {
		end := startWord + window
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[startWord:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
