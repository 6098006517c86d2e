package concept

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/common"
	"github.com/wnsgho/legal-full/internal/core/model"
	"github.com/wnsgho/legal-full/internal/llm"
)

// maxInputBytes caps the text handed to the extraction prompt.
const maxInputBytes = 4096

const extractPrompt = `Extract the key concepts from the text below.
A concept is a short noun phrase of 1 to 5 words naming a thing, party,
obligation, or topic. Do not include full sentences or questions.

Text:
%s

Respond with JSON only:
{"concepts": ["...", "..."]}`

type conceptList struct {
	Concepts []string `json:"concepts"`
}

// Extractor turns free text into deduplicated, embedded concepts.
type Extractor struct {
	LLM      llm.LLMClient
	Embedder llm.EmbedderClient
	log      *zap.Logger
}

func NewExtractor(llmClient llm.LLMClient, embedder llm.EmbedderClient, log *zap.Logger) *Extractor {
	return &Extractor{LLM: llmClient, Embedder: embedder, log: log}
}

// Extract returns concepts for the text: short noun phrases, stopword
// filtered, unique by lowercased text, embedded in one batch. Empty input
// yields an empty slice; provider rate limiting surfaces as ErrExtractorBusy
// so the caller can retry.
func (e *Extractor) Extract(ctx context.Context, text string) ([]model.Concept, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []model.Concept{}, nil
	}
	if len(text) > maxInputBytes {
		text = text[:maxInputBytes]
	}

	response, err := e.LLM.Generate(ctx, fmt.Sprintf(extractPrompt, text))
	if err != nil {
		if errors.Is(err, model.ErrLLMTransient) {
			return nil, model.Faultf(model.ErrExtractorBusy, "%v", err)
		}
		return nil, fmt.Errorf("concept extraction: %w", err)
	}

	parsed, err := common.ParseJSON[conceptList](response)
	if err != nil {
		e.log.Warn("concept extraction returned unparseable response", zap.Error(err))
		return []model.Concept{}, nil
	}

	phrases := e.filter(parsed.Concepts)
	if len(phrases) == 0 {
		return []model.Concept{}, nil
	}

	vecs, err := e.Embedder.EmbedBatch(ctx, phrases)
	if err != nil {
		if errors.Is(err, model.ErrLLMTransient) {
			return nil, model.Faultf(model.ErrExtractorBusy, "%v", err)
		}
		return nil, fmt.Errorf("concept embedding: %w", err)
	}

	concepts := make([]model.Concept, len(phrases))
	for i, p := range phrases {
		concepts[i] = model.Concept{
			ID:        "concept:" + strings.ToLower(p),
			Text:      p,
			Embedding: vecs[i],
		}
	}
	return concepts, nil
}

// filter keeps 1..5 token phrases, strips stopword-only phrases, and
// deduplicates by lowercased text preserving first occurrence.
func (e *Extractor) filter(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, phrase := range raw {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		tokens := strings.Fields(phrase)
		if len(tokens) > 5 {
			continue
		}
		allStop := true
		for _, t := range tokens {
			if !isStopword(strings.ToLower(t)) {
				allStop = false
				break
			}
		}
		if allStop {
			continue
		}
		key := strings.ToLower(phrase)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, phrase)
	}
	return out
}
