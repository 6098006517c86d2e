package analyzer

import (
	"context"

	"github.com/wnsgho/legal-full/internal/core/model"
)

type mockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Prompts       []string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

type mockRetriever struct {
	Result *model.HybridResult
	Err    error
	Calls  []string
}

func (m *mockRetriever) HybridRetrieve(_ context.Context, query string, _ int) (*model.HybridResult, error) {
	m.Calls = append(m.Calls, query)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &model.HybridResult{
		Passages: []model.ScoredPassage{
			{Passage: model.Passage{ID: "p1", Text: "Clause one."}, Score: 1.0},
			{Passage: model.Passage{ID: "p2", Text: "Clause two."}, Score: 0.5},
		},
		Stats: model.SearchStats{
			SuccessfulSearches: 4,
			SubRetrieverHits:   map[string]int{"graph": 1, "hippo": 1},
		},
	}, nil
}
