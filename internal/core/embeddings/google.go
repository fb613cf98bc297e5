package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

const (
	ModelGeminiEmbedding001 = "gemini-embedding-001"

	// Full-size gemini-embedding-001 output; the registry shortens it.
	googleDimensions       = 3072
	googleRateLimiterBurst = 5
)

var (
	ErrGoogleEmptyResponse = errors.New("empty embedding response from Google")
	ErrGoogleAPIFailure    = errors.New("google embedding API error")
)

// GoogleConfig configures the Gemini fallback.
type GoogleConfig struct {
	APIKey    string
	Model     string // defaults to gemini-embedding-001
	RateLimit int    // requests per second
}

// embedFunc is the single Gemini call the provider makes.
type embedFunc func(ctx context.Context, text string) ([]float32, error)

// GoogleProvider embeds posts with Gemini embedding models.
type GoogleProvider struct {
	availability

	model   string
	limiter *rate.Limiter
	embed   embedFunc
	closer  func() error
}

// NewGoogleProvider dials the Gemini API. Without an API key it returns an
// unavailable provider rather than an error.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig) (*GoogleProvider, error) {
	if cfg.APIKey == "" {
		return &GoogleProvider{}, nil
	}

	if cfg.Model == "" {
		cfg.Model = ModelGeminiEmbedding001
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating google genai client: %w", err)
	}

	model := client.EmbeddingModel(cfg.Model)
	model.TaskType = genai.TaskTypeClustering

	p := newGoogleProvider(cfg, func(ctx context.Context, text string) ([]float32, error) {
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}

		if resp == nil || resp.Embedding == nil {
			return nil, nil
		}

		return resp.Embedding.Values, nil
	})
	p.closer = client.Close

	return p, nil
}

func newGoogleProvider(cfg GoogleConfig, embed embedFunc) *GoogleProvider {
	if cfg.Model == "" {
		cfg.Model = ModelGeminiEmbedding001
	}

	p := &GoogleProvider{
		model:   cfg.Model,
		limiter: newLimiter(cfg.RateLimit, 1, googleRateLimiterBurst),
		embed:   embed,
	}
	p.set(embed != nil)

	return p
}

func (p *GoogleProvider) Name() ProviderName { return ProviderGoogle }
func (p *GoogleProvider) Model() string      { return p.model }
func (p *GoogleProvider) Priority() int      { return PriorityThirdFallback }
func (p *GoogleProvider) Dimensions() int    { return googleDimensions }

// GetEmbedding embeds one text with the clustering task type.
func (p *GoogleProvider) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	if p.embed == nil {
		return EmbeddingResult{}, ErrGoogleAPIFailure
	}

	if err := throttle(ctx, p.limiter); err != nil {
		return EmbeddingResult{}, err
	}

	vec, err := p.embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("%w: %w", ErrGoogleAPIFailure, err)
	}

	if len(vec) == 0 {
		return EmbeddingResult{}, ErrGoogleEmptyResponse
	}

	return result(ProviderGoogle, p.model, vec), nil
}

// Close releases the gRPC connection.
func (p *GoogleProvider) Close() error {
	if p.closer == nil {
		return nil
	}

	if err := p.closer(); err != nil {
		return fmt.Errorf("closing google embedding client: %w", err)
	}

	return nil
}
