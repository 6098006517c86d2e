package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wnsgho/legal-full/internal/core/model"
)

const (
	backoffBase = 1 * time.Second
	backoffCap  = 30 * time.Second
)

// Usage accumulates token totals across all sessions sharing the governor.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	Calls            int64 `json:"calls"`
}

// Governor decorates an LLMClient with the process-wide token-rate limiter,
// a per-call timeout, transient-error retry with exponential backoff, and
// token accounting. All sessions share one governor.
type Governor struct {
	inner       LLMClient
	limiter     *rate.Limiter
	callTimeout time.Duration
	maxRetries  int
	log         *zap.Logger

	prompt     atomic.Int64
	completion atomic.Int64
	calls      atomic.Int64

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

type GovernorConfig struct {
	TokensPerSecond float64
	Burst           int
	CallTimeout     time.Duration
	MaxRetries      int
}

func NewGovernor(inner LLMClient, cfg GovernorConfig, log *zap.Logger) *Governor {
	if cfg.TokensPerSecond <= 0 {
		cfg.TokensPerSecond = 5000
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.TokensPerSecond)
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &Governor{
		inner:       inner,
		limiter:     rate.NewLimiter(rate.Limit(cfg.TokensPerSecond), cfg.Burst),
		callTimeout: cfg.CallTimeout,
		maxRetries:  cfg.MaxRetries,
		log:         log,
	}
}

func (g *Governor) Generate(ctx context.Context, prompt string) (string, error) {
	cost := g.countTokens(prompt)
	if cost > g.limiter.Burst() {
		cost = g.limiter.Burst()
	}
	if err := g.limiter.WaitN(ctx, cost); err != nil {
		return "", err
	}

	var lastErr error
	delay := backoffBase
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		response, err := g.generateOnce(ctx, prompt)
		if err == nil {
			g.calls.Add(1)
			g.prompt.Add(int64(cost))
			g.completion.Add(int64(g.countTokens(response)))
			return response, nil
		}
		lastErr = err
		if errors.Is(err, model.ErrLLMPermanent) || errors.Is(err, context.Canceled) {
			return "", err
		}
		g.log.Warn("llm call failed, backing off",
			zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > backoffCap {
			delay = backoffCap
		}
	}
	return "", model.Faultf(model.ErrLLMTransient, "retries exhausted: %v", lastErr)
}

func (g *Governor) generateOnce(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()
	response, err := g.inner.Generate(callCtx, prompt)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return "", model.Faultf(model.ErrLLMTransient, "call timeout after %s", g.callTimeout)
	}
	return response, err
}

// Usage returns a snapshot of the accumulated token counters.
func (g *Governor) Usage() Usage {
	return Usage{
		PromptTokens:     g.prompt.Load(),
		CompletionTokens: g.completion.Load(),
		Calls:            g.calls.Load(),
	}
}

// countTokens estimates with cl100k_base, falling back to a bytes/4 heuristic
// when the encoding is unavailable (e.g. offline test runs).
func (g *Governor) countTokens(text string) int {
	g.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			g.log.Warn("tiktoken unavailable, using byte estimate", zap.Error(err))
			return
		}
		g.enc = enc
	})
	if g.enc != nil {
		return len(g.enc.Encode(text, nil, nil))
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
