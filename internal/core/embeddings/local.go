package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

const (
	DefaultLocalEndpoint = "http://127.0.0.1:8844/embed"

	localDefaultTimeout   = 30 * time.Second
	localRateLimiterBurst = 20
	localDefaultRateLimit = 50
	localProbeText        = "ping"
)

var (
	ErrLocalEmptyResponse = errors.New("empty embedding response from local model")
	ErrLocalAPIFailure    = errors.New("local embedding server error")
)

// LocalConfig configures the sentence-transformers sidecar.
type LocalConfig struct {
	Endpoint       string
	Model          string
	Dimensions     int
	MaxInputTokens int
	RateLimit      int // requests per second
	Timeout        time.Duration
}

// LocalProvider calls a sentence-transformers model served over HTTP next to
// the service. It becomes unavailable when a probe fails.
type LocalProvider struct {
	availability

	endpoint   *jsonEndpoint
	model      string
	dimensions int
	maxTokens  int
	limiter    *rate.Limiter
}

type localEmbedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
}

// localEmbedResponse covers both the native {"embeddings": [...]} shape and
// the OpenAI-compatible {"data": [{"embedding": [...]}]} shape.
type localEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Data       []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (r localEmbedResponse) vector() ([]float32, error) {
	switch {
	case len(r.Embeddings) > 0 && len(r.Embeddings[0]) > 0:
		return r.Embeddings[0], nil
	case len(r.Data) > 0 && len(r.Data[0].Embedding) > 0:
		return r.Data[0].Embedding, nil
	default:
		return nil, ErrLocalEmptyResponse
	}
}

// NewLocalProvider creates a provider for the local embedding server.
func NewLocalProvider(cfg LocalConfig) *LocalProvider {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultLocalEndpoint
	}

	if cfg.Model == "" {
		cfg.Model = DefaultLocalModel
	}

	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	if cfg.MaxInputTokens <= 0 {
		cfg.MaxInputTokens = DefaultMaxInputTokens
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = localDefaultTimeout
	}

	p := &LocalProvider{
		endpoint:   newJSONEndpoint(cfg.Endpoint, cfg.Timeout, ErrLocalAPIFailure),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		maxTokens:  cfg.MaxInputTokens,
		limiter:    newLimiter(cfg.RateLimit, localDefaultRateLimit, localRateLimiterBurst),
	}
	p.set(true)

	return p
}

func (p *LocalProvider) Name() ProviderName { return ProviderLocal }
func (p *LocalProvider) Model() string      { return p.model }
func (p *LocalProvider) Priority() int      { return PriorityPrimary }
func (p *LocalProvider) Dimensions() int    { return p.dimensions }

// Probe embeds a short text to make sure the model is loaded and produces the
// configured dimensions.
func (p *LocalProvider) Probe(ctx context.Context) error {
	res, err := p.GetEmbedding(ctx, localProbeText)
	if err == nil && res.Dimensions != p.dimensions {
		err = fmt.Errorf("%w: got %d dimensions, want %d", coreerrors.ErrDimensionMismatch, res.Dimensions, p.dimensions)
	}

	p.set(err == nil)

	if err != nil {
		return fmt.Errorf("probe local model: %w", err)
	}

	return nil
}

// GetEmbedding embeds text with the local model.
func (p *LocalProvider) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	if err := throttle(ctx, p.limiter); err != nil {
		return EmbeddingResult{}, err
	}

	var resp localEmbedResponse

	err := p.endpoint.post(ctx, localEmbedRequest{
		Texts:     []string{text},
		Model:     p.model,
		MaxLength: p.maxTokens,
	}, &resp)
	if err != nil {
		return EmbeddingResult{}, err
	}

	vec, err := resp.vector()
	if err != nil {
		return EmbeddingResult{}, err
	}

	return result(ProviderLocal, p.model, vec), nil
}
