package model

import "time"

// SessionStatus is the lifecycle state of an analysis session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"
	SessionRunning   SessionStatus = "RUNNING"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionFailed    SessionStatus = "FAILED"
	SessionCanceled  SessionStatus = "CANCELED"
)

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCanceled
}

// AnalysisSession is one stateful, cancelable run of the checklist over a
// contract. Part results are appended atomically by the owning orchestrator;
// readers observe copies.
type AnalysisSession struct {
	ID            string             `json:"id"`
	ContractID    string             `json:"contract_id"`
	ContractName  string             `json:"contract_name"`
	Status        SessionStatus      `json:"status"`
	Progress      int                `json:"progress"`
	SelectedParts []int              `json:"selected_parts"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    *time.Time         `json:"finished_at,omitempty"`
	PartResults   map[int]PartResult `json:"part_results"`
	Error         string             `json:"error,omitempty"`
}

// CompletedParts counts parts that ran to completion (FAILED parts are
// recorded but do not advance progress).
func (s *AnalysisSession) CompletedParts() int {
	n := 0
	for _, r := range s.PartResults {
		if r.Status == PartOK {
			n++
		}
	}
	return n
}

// Clone deep-copies the session so readers never alias orchestrator state.
func (s *AnalysisSession) Clone() *AnalysisSession {
	cp := *s
	cp.SelectedParts = append([]int(nil), s.SelectedParts...)
	cp.PartResults = make(map[int]PartResult, len(s.PartResults))
	for k, v := range s.PartResults {
		v.ChecklistResults = append([]ItemResult(nil), v.ChecklistResults...)
		v.RelevantClauses = append([]string(nil), v.RelevantClauses...)
		v.Recommendations = append([]string(nil), v.Recommendations...)
		v.SearchStats.Queries = append([]string(nil), v.SearchStats.Queries...)
		if v.SearchStats.SubRetrieverHits != nil {
			hits := make(map[string]int, len(v.SearchStats.SubRetrieverHits))
			for name, n := range v.SearchStats.SubRetrieverHits {
				hits[name] = n
			}
			v.SearchStats.SubRetrieverHits = hits
		}
		cp.PartResults[k] = v
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

// SessionSummary is the listing shape persisted next to each session so
// saved-session listings never load part-result bodies.
type SessionSummary struct {
	ID           string        `json:"id"`
	ContractID   string        `json:"contract_id"`
	ContractName string        `json:"contract_name"`
	Status       SessionStatus `json:"status"`
	Progress     int           `json:"progress"`
	OverallScore *float64      `json:"overall_risk_score,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// ReportSummary aggregates the report's headline numbers.
type ReportSummary struct {
	TotalPartsAnalyzed int      `json:"total_parts_analyzed"`
	HighRiskParts      int      `json:"high_risk_parts"`
	CriticalIssues     []string `json:"critical_issues"`
}

// IntegratedReport is the final artifact of a finished session.
// OverallRiskScore is nil when parts were selected but none completed
// successfully; an empty selection reports 0.
type IntegratedReport struct {
	ContractName     string             `json:"contract_name"`
	OverallRiskScore *float64           `json:"overall_risk_score"`
	OverallRiskLevel RiskLevel          `json:"overall_risk_level"`
	PartResults      map[int]PartResult `json:"part_results"`
	Summary          ReportSummary      `json:"summary"`
}

// BuildReport derives the integrated report from a terminal session.
func BuildReport(s *AnalysisSession) IntegratedReport {
	report := IntegratedReport{
		ContractName: s.ContractName,
		PartResults:  s.PartResults,
		Summary:      ReportSummary{CriticalIssues: []string{}},
	}

	sum := 0.0
	succeeded := 0
	for _, r := range s.PartResults {
		if r.Status != PartOK {
			continue
		}
		succeeded++
		sum += r.RiskScore
		if r.RiskLevel == RiskHigh || r.RiskLevel == RiskCritical {
			report.Summary.HighRiskParts++
		}
		if r.RiskLevel == RiskCritical {
			report.Summary.CriticalIssues = append(report.Summary.CriticalIssues, r.PartTitle)
		}
	}
	report.Summary.TotalPartsAnalyzed = len(s.PartResults)

	if succeeded > 0 {
		score := sum / float64(succeeded)
		report.OverallRiskScore = &score
		report.OverallRiskLevel = LevelForScore(score)
	} else {
		report.OverallRiskLevel = RiskLow
		if len(s.SelectedParts) == 0 {
			zero := 0.0
			report.OverallRiskScore = &zero
		}
	}
	return report
}
