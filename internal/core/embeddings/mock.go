package embeddings

import (
	"context"
	"hash/fnv"
)

// Mock provider constants.
const (
	// LCG (Linear Congruential Generator) constants for deterministic pseudo-random generation.
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407

	seedShift  = 33
	floatScale = 0x40000000

	// MockModel is the model id MockProvider reports.
	MockModel = "mock-fnv"
)

// MockProvider generates deterministic embeddings from the input text hash.
// Identical texts map to identical vectors; different texts are close to orthogonal.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a new mock embedding provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		dimensions: DefaultDimensions,
	}
}

// NewMockProviderWithDimensions creates a mock provider with custom dimensions.
func NewMockProviderWithDimensions(dims int) *MockProvider {
	return &MockProvider{
		dimensions: dims,
	}
}

func (p *MockProvider) Name() ProviderName { return ProviderMock }
func (p *MockProvider) Model() string      { return MockModel }
func (p *MockProvider) Priority() int      { return PriorityMock }
func (p *MockProvider) Dimensions() int    { return p.dimensions }
func (p *MockProvider) IsAvailable() bool  { return true }

// GetEmbedding generates a deterministic unit vector based on text hash.
func (p *MockProvider) GetEmbedding(_ context.Context, text string) (EmbeddingResult, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text)) // fnv.Write never returns an error
	seed := h.Sum64()

	vec := make([]float32, p.dimensions)
	for i := range vec {
		seed = seed*lcgMultiplier + lcgIncrement
		//nolint:gosec // intentional uint64->int64 conversion for pseudo-random generation
		vec[i] = float32(int64(seed>>seedShift)-floatScale) / float32(floatScale)
	}

	return EmbeddingResult{
		Vector:     Normalize(vec),
		Dimensions: p.dimensions,
		Provider:   ProviderMock,
		Model:      MockModel,
	}, nil
}
