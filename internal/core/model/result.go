package model

import (
	"math"
	"sort"
	"strings"
)

// ItemStatus is the per-checklist-item verdict.
type ItemStatus string

const (
	StatusPass   ItemStatus = "PASS"
	StatusWarn   ItemStatus = "WARN"
	StatusDanger ItemStatus = "DANGER"
)

// RiskLevel bands a part or report score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// PartStatus marks whether a part analysis ran to completion.
type PartStatus string

const (
	PartOK     PartStatus = "OK"
	PartFailed PartStatus = "FAILED"
)

// ItemResult is the scored outcome of one checklist item.
type ItemResult struct {
	ItemText       string     `json:"item_text"`
	Status         ItemStatus `json:"status"`
	RiskScore      int        `json:"risk_score"`
	Analysis       string     `json:"analysis"`
	Recommendation string     `json:"recommendation"`
}

// ItemOutcome is the explicit result of analyzing one item: either a parsed
// result or a parse failure carrying the raw response. The fallback result
// is derived from the failure, not recovered from a panic or error path.
type ItemOutcome struct {
	Result      *ItemResult
	ParseFailed bool
	RawResponse string
}

// FallbackResult materializes the parse-error fallback for a failed outcome.
func (o ItemOutcome) FallbackResult(itemText string) ItemResult {
	if o.Result != nil {
		return *o.Result
	}
	return ItemResult{
		ItemText:       itemText,
		Status:         StatusWarn,
		RiskScore:      2,
		Analysis:       "parse_error",
		Recommendation: "",
	}
}

// StatusForScore maps a 0..5 item score onto its status band.
func StatusForScore(score int) ItemStatus {
	switch {
	case score <= 1:
		return StatusPass
	case score <= 3:
		return StatusWarn
	default:
		return StatusDanger
	}
}

// Normalize clamps the score into 0..5 and forces the status onto the band
// implied by the score.
func (r *ItemResult) Normalize() {
	if r.RiskScore < 0 {
		r.RiskScore = 0
	}
	if r.RiskScore > 5 {
		r.RiskScore = 5
	}
	r.Status = StatusForScore(r.RiskScore)
	if len(r.Analysis) > 500 {
		r.Analysis = r.Analysis[:500]
	}
	if len(r.Recommendation) > 500 {
		r.Recommendation = r.Recommendation[:500]
	}
}

// SearchStats records hybrid retrieval observability for one part.
type SearchStats struct {
	Queries            []string       `json:"queries"`
	TotalClausesFound  int            `json:"total_clauses_found"`
	SuccessfulSearches int            `json:"successful_searches"`
	SubRetrieverHits   map[string]int `json:"sub_retriever_hits,omitempty"`
}

// PartResult is the aggregated outcome of one checklist part.
type PartResult struct {
	PartNumber       int          `json:"part_number"`
	PartTitle        string       `json:"part_title"`
	Status           PartStatus   `json:"status"`
	FailReason       string       `json:"fail_reason,omitempty"`
	RiskScore        float64      `json:"risk_score"`
	RiskLevel        RiskLevel    `json:"risk_level"`
	ChecklistResults []ItemResult `json:"checklist_results"`
	RelevantClauses  []string     `json:"relevant_clauses"`
	Recommendations  []string     `json:"recommendations"`
	SearchStats      SearchStats  `json:"hybrid_search_stats"`
	DurationSeconds  float64      `json:"duration_seconds"`
}

// LevelForScore bands a mean score: [0,1) LOW, [1,2.5) MEDIUM,
// [2.5,4) HIGH, [4,5] CRITICAL.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < 1.0:
		return RiskLow
	case score < 2.5:
		return RiskMedium
	case score < 4.0:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// MeanItemScore averages the item scores rounded to one decimal.
func MeanItemScore(items []ItemResult) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0
	for _, it := range items {
		sum += it.RiskScore
	}
	mean := float64(sum) / float64(len(items))
	return math.Round(mean*10) / 10
}

// TopRecommendations returns the up-to-five highest-scoring non-empty
// recommendations, deduplicated by a short prefix.
func TopRecommendations(items []ItemResult) []string {
	ranked := make([]ItemResult, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Recommendation) != "" {
			ranked = append(ranked, it)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RiskScore > ranked[j].RiskScore
	})

	seen := make(map[string]bool)
	var out []string
	for _, it := range ranked {
		rec := strings.TrimSpace(it.Recommendation)
		key := rec
		if len(key) > 40 {
			key = key[:40]
		}
		key = strings.ToLower(key)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
		if len(out) == 5 {
			break
		}
	}
	return out
}
