package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnsgho/legal-full/internal/core/model"
)

func TestParseItemResponseValid(t *testing.T) {
	out := parseItemResponse("item", `{"status":"DANGER","risk_score":5,"analysis":"x","recommendation":"y"}`)
	require.NotNil(t, out.Result)
	assert.Equal(t, model.StatusDanger, out.Result.Status)
	assert.Equal(t, 5, out.Result.RiskScore)
	assert.Equal(t, "item", out.Result.ItemText)
}

func TestParseItemResponseWithSurroundingProse(t *testing.T) {
	out := parseItemResponse("item", "Here is my analysis:\n```json\n{\"status\":\"PASS\",\"risk_score\":0,\"analysis\":\"fine\",\"recommendation\":\"\"}\n```")
	require.NotNil(t, out.Result)
	assert.Equal(t, model.StatusPass, out.Result.Status)
}

func TestParseItemResponseForcesStatusBand(t *testing.T) {
	out := parseItemResponse("item", `{"status":"PASS","risk_score":4,"analysis":"","recommendation":""}`)
	require.NotNil(t, out.Result)
	assert.Equal(t, model.StatusDanger, out.Result.Status)

	out = parseItemResponse("item", `{"status":"DANGER","risk_score":2,"analysis":"","recommendation":""}`)
	require.NotNil(t, out.Result)
	assert.Equal(t, model.StatusWarn, out.Result.Status)
}

func TestParseItemResponseRepairsMalformedJSON(t *testing.T) {
	// Unquoted keys and trailing comma go through the repair path.
	out := parseItemResponse("item", `{status: "WARN", risk_score: 3, analysis: "x", recommendation: "y",}`)
	require.NotNil(t, out.Result)
	assert.Equal(t, 3, out.Result.RiskScore)
}

func TestParseItemResponseFailure(t *testing.T) {
	out := parseItemResponse("item", "not json at all")
	assert.True(t, out.ParseFailed)
	assert.Nil(t, out.Result)
}

func TestRepairItemResponse(t *testing.T) {
	failed := model.ItemOutcome{ParseFailed: true, RawResponse: "broken"}

	client := &mockLLM{Response: `{"status":"WARN","risk_score":2,"analysis":"repaired","recommendation":""}`}
	out := repairItemResponse(context.Background(), client, "item", failed)
	require.NotNil(t, out.Result)
	assert.Equal(t, "repaired", out.Result.Analysis)
	require.Len(t, client.Prompts, 1)
	assert.Contains(t, client.Prompts[0], "broken")

	// Repair output still unparseable: outcome stays failed and the caller
	// falls back.
	client = &mockLLM{Response: "still broken"}
	out = repairItemResponse(context.Background(), client, "item", failed)
	assert.True(t, out.ParseFailed)
	fb := out.FallbackResult("item")
	assert.Equal(t, model.StatusWarn, fb.Status)
	assert.Equal(t, 2, fb.RiskScore)
	assert.Equal(t, "parse_error", fb.Analysis)
}

func TestItemSchemaMentionsRequiredKeys(t *testing.T) {
	schema := itemSchema()
	assert.Contains(t, schema, "status")
	assert.Contains(t, schema, "risk_score")
	assert.Contains(t, schema, "analysis")
	assert.Contains(t, schema, "recommendation")
}
