package concept

import (
	"context"
)

type mockLLM struct {
	Response string
	Err      error
	Prompts  []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

type mockEmbedder struct {
	Dimension int
	Err       error
	Batches   [][]string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.Batches = append(m.Batches, texts)
	if m.Err != nil {
		return nil, m.Err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, m.Dimension)
		vec[i%m.Dimension] = 1
		vecs[i] = vec
	}
	return vecs, nil
}
