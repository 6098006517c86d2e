package analyzer

import (
	"context"

	"github.com/wnsgho/legal-full/internal/core/common"
	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/llm"
)

// parseItemResponse converts one model response into an ItemOutcome. A
// response that survives flexible parsing yields Ok; anything else is a
// ParseFailure carrying the raw text so the caller can decide on a repair
// pass.
func parseItemResponse(itemText, response string) model.ItemOutcome {
	payload, err := common.ParseJSON[itemPayload](response)
	if err != nil {
		return model.ItemOutcome{ParseFailed: true, RawResponse: response}
	}

	result := model.ItemResult{
		ItemText:       itemText,
		Status:         model.ItemStatus(payload.Status),
		RiskScore:      payload.RiskScore,
		Analysis:       payload.Analysis,
		Recommendation: payload.Recommendation,
	}
	result.Normalize()
	return model.ItemOutcome{Result: &result}
}

// repairItemResponse runs the single-shot repair prompt over a failed
// outcome. The returned outcome is final: still-failed outcomes fall back
// via ItemOutcome.FallbackResult.
func repairItemResponse(ctx context.Context, client llm.LLMClient, itemText string, failed model.ItemOutcome) model.ItemOutcome {
	if !failed.ParseFailed {
		return failed
	}
	repaired, err := client.Generate(ctx, buildRepairPrompt(failed.RawResponse))
	if err != nil {
		return failed
	}
	return parseItemResponse(itemText, repaired)
}
