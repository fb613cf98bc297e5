package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// OpenAI model constants.
const (
	ModelTextEmbedding3Large = "text-embedding-3-large"
	ModelTextEmbedding3Small = "text-embedding-3-small"

	openaiRateLimiterBurst = 5
)

// ErrOpenAIEmptyResponse is returned when OpenAI responds without vectors.
var ErrOpenAIEmptyResponse = errors.New("empty embedding response from OpenAI")

// OpenAIProvider implements the embedding Provider interface for OpenAI.
type OpenAIProvider struct {
	availability

	client     *openai.Client
	model      string
	dimensions int
	limiter    *rate.Limiter
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // Optional OpenAI-compatible endpoint
	Model      string // "text-embedding-3-large" or "text-embedding-3-small"
	Dimensions int    // Requested output dimensions (text-embedding-3 models shorten natively)
	RateLimit  int    // Requests per second
}

// NewOpenAIProvider creates a new OpenAI embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = ModelTextEmbedding3Small
	}

	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	p := &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		limiter:    newLimiter(cfg.RateLimit, 1, openaiRateLimiterBurst),
	}
	p.set(cfg.APIKey != "" && cfg.APIKey != mockAPIKey)

	return p
}

func (p *OpenAIProvider) Name() ProviderName { return ProviderOpenAI }
func (p *OpenAIProvider) Model() string      { return p.model }
func (p *OpenAIProvider) Priority() int      { return PriorityFallback }
func (p *OpenAIProvider) Dimensions() int    { return p.dimensions }

// GetEmbedding generates an embedding for the given text using OpenAI API.
func (p *OpenAIProvider) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	if err := throttle(ctx, p.limiter); err != nil {
		return EmbeddingResult{}, err
	}

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	}

	// text-embedding-3 models shorten vectors server-side without losing the
	// unit-norm property, so the target dimension is requested directly.
	if p.dimensions > 0 {
		req.Dimensions = p.dimensions
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) == 0 {
		return EmbeddingResult{}, ErrOpenAIEmptyResponse
	}

	return result(ProviderOpenAI, p.model, resp.Data[0].Embedding), nil
}
