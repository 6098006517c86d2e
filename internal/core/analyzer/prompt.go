package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/wnsgho/legal-full/internal/core/checklist"
)

// clauseBudgetBytes bounds how much retrieved clause text one item prompt
// may carry.
const clauseBudgetBytes = 8192

const analystRole = `You are a contract risk analyst. You review contract clauses against a
checklist and score findings conservatively. Base every finding on the
clauses provided; never invent clause text.`

// itemPayload is the JSON shape the model must return per checklist item.
// The prompt embeds its reflected schema so the wire shape can never drift
// from this struct.
type itemPayload struct {
	Status         string `json:"status" jsonschema:"enum=PASS,enum=WARN,enum=DANGER"`
	RiskScore      int    `json:"risk_score" jsonschema:"minimum=0,maximum=5"`
	Analysis       string `json:"analysis"`
	Recommendation string `json:"recommendation"`
}

var (
	schemaOnce sync.Once
	schemaJSON string
)

func itemSchema() string {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		data, err := json.Marshal(reflector.Reflect(&itemPayload{}))
		if err != nil {
			// Reflection of a package-local struct cannot fail at runtime;
			// keep a literal fallback anyway.
			schemaJSON = `{"type":"object","required":["status","risk_score","analysis","recommendation"]}`
			return
		}
		schemaJSON = string(data)
	})
	return schemaJSON
}

func buildItemPrompt(part *checklist.Part, item checklist.Item, clauses []string) string {
	var sb strings.Builder
	sb.WriteString(analystRole)
	sb.WriteString("\n\nAnalyze only this part of the contract:\n")
	fmt.Fprintf(&sb, "Part: %s\n", part.Title)
	fmt.Fprintf(&sb, "Top risk pattern: %s\n", part.TopRiskPattern)
	fmt.Fprintf(&sb, "Core question: %s\n", part.CoreQuestion)
	fmt.Fprintf(&sb, "\nChecklist item under review: %s\n", item.Text)

	sb.WriteString("\nRelevant clauses:\n")
	budget := clauseBudgetBytes
	for _, clause := range clauses {
		line := "- " + clause + "\n"
		if len(line) > budget {
			break
		}
		sb.WriteString(line)
		budget -= len(line)
	}

	sb.WriteString(`
Compare the checklist item against the clauses above.
Score 0-5 (0 = no risk, 5 = severe risk). Status must match the score:
PASS for 0-1, WARN for 2-3, DANGER for 4-5.
Keep analysis and recommendation under 500 characters each.

Respond with a single JSON object matching this schema, and nothing else:
`)
	sb.WriteString(itemSchema())
	return sb.String()
}

func buildRepairPrompt(raw string) string {
	return fmt.Sprintf(`The following text was supposed to be a single JSON object with keys
"status", "risk_score", "analysis", "recommendation" but is not valid JSON.
Rewrite it as valid JSON. Output only the JSON object.

%s`, raw)
}
