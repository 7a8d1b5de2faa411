package agent

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ChatClient is the part of the OpenAI API the agent uses. *openai.Client
// satisfies it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient returns a client for an OpenAI-compatible endpoint.
// An empty baseURL uses the OpenAI default.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

type rateLimited struct {
	next    ChatClient
	limiter *rate.Limiter
}

// NewRateLimited limits next to rps requests per second. A non-positive rps
// returns next unchanged.
func NewRateLimited(next ChatClient, rps float64) ChatClient {
	if rps <= 0 {
		return next
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (c *rateLimited) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return c.next.CreateChatCompletion(ctx, req)
}
