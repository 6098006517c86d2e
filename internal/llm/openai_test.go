package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/wnsgho/legal-full/internal/core/model"
)

func TestClassifyOpenAIError(t *testing.T) {
	rateLimited := &openai.APIError{HTTPStatusCode: 429}
	assert.True(t, errors.Is(classifyOpenAIError(rateLimited), model.ErrLLMTransient))

	serverErr := &openai.APIError{HTTPStatusCode: 503}
	assert.True(t, errors.Is(classifyOpenAIError(serverErr), model.ErrLLMTransient))

	authErr := &openai.APIError{HTTPStatusCode: 401}
	assert.True(t, errors.Is(classifyOpenAIError(authErr), model.ErrLLMPermanent))

	badRequest := &openai.APIError{HTTPStatusCode: 400}
	assert.True(t, errors.Is(classifyOpenAIError(badRequest), model.ErrLLMPermanent))

	timeout := context.DeadlineExceeded
	assert.True(t, errors.Is(classifyOpenAIError(timeout), model.ErrLLMTransient))

	plain := errors.New("connection reset")
	assert.False(t, errors.Is(classifyOpenAIError(plain), model.ErrLLMPermanent))
}
