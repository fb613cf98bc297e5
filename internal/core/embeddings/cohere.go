package embeddings

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

const (
	CohereAPIEndpoint        = "https://api.cohere.ai/v1/embed"
	ModelEmbedMultilingualV3 = "embed-multilingual-v3.0"

	cohereDimensions       = 1024
	cohereRateLimiterBurst = 5
	cohereDefaultTimeout   = 30 * time.Second

	// Posts are compared with posts, never with queries.
	cohereInputTypeClustering = "clustering"
	// Long articles keep their lead, which carries the news.
	cohereTruncateEnd = "END"
)

var (
	ErrCohereEmptyResponse = errors.New("empty embedding response from Cohere")
	ErrCohereAPIFailure    = errors.New("cohere API error")
)

// CohereConfig configures the Cohere fallback.
type CohereConfig struct {
	APIKey    string
	Endpoint  string // defaults to CohereAPIEndpoint
	Model     string // defaults to embed-multilingual-v3.0
	RateLimit int    // requests per second
	Timeout   time.Duration
}

// CohereProvider embeds posts with Cohere's multilingual model.
type CohereProvider struct {
	availability

	endpoint *jsonEndpoint
	model    string
	limiter  *rate.Limiter
}

type cohereEmbedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate,omitempty"`
}

type cohereEmbedResponse struct {
	ID         string      `json:"id"`
	Embeddings [][]float32 `json:"embeddings"`
}

// NewCohereProvider creates a Cohere provider; it is unavailable without an API key.
func NewCohereProvider(cfg CohereConfig) *CohereProvider {
	if cfg.Model == "" {
		cfg.Model = ModelEmbedMultilingualV3
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = cohereDefaultTimeout
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = CohereAPIEndpoint
	}

	p := &CohereProvider{
		endpoint: newJSONEndpoint(cfg.Endpoint, cfg.Timeout, ErrCohereAPIFailure).withBearer(cfg.APIKey),
		model:    cfg.Model,
		limiter:  newLimiter(cfg.RateLimit, 1, cohereRateLimiterBurst),
	}
	p.set(cfg.APIKey != "")

	return p
}

func (p *CohereProvider) Name() ProviderName { return ProviderCohere }
func (p *CohereProvider) Model() string      { return p.model }
func (p *CohereProvider) Priority() int      { return PrioritySecondFallback }
func (p *CohereProvider) Dimensions() int    { return cohereDimensions }

// GetEmbedding embeds one text.
func (p *CohereProvider) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	if err := throttle(ctx, p.limiter); err != nil {
		return EmbeddingResult{}, err
	}

	var resp cohereEmbedResponse

	err := p.endpoint.post(ctx, cohereEmbedRequest{
		Texts:     []string{text},
		Model:     p.model,
		InputType: cohereInputTypeClustering,
		Truncate:  cohereTruncateEnd,
	}, &resp)
	if err != nil {
		return EmbeddingResult{}, err
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return EmbeddingResult{}, ErrCohereEmptyResponse
	}

	return result(ProviderCohere, p.model, resp.Embeddings[0]), nil
}
