package dedup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-dedup/internal/core/domain"
)

// SemanticMatcher finds paraphrases by cosine similarity of embeddings.
// Every candidate is scored and only the best one is compared with the threshold.
type SemanticMatcher struct {
	embedder  Embedder
	threshold float64
	logger    *zerolog.Logger
}

// NewSemanticMatcher creates a semantic stage.
func NewSemanticMatcher(embedder Embedder, threshold float64, logger *zerolog.Logger) *SemanticMatcher {
	return &SemanticMatcher{embedder: embedder, threshold: threshold, logger: logger}
}

func (m *SemanticMatcher) Method() Method { return MethodSemantic }

// Match returns the best-scoring candidate when its similarity exceeds the threshold.
func (m *SemanticMatcher) Match(ctx context.Context, text string, candidates []domain.Candidate) Result {
	query, ok := embed(ctx, m.embedder, text)
	if !ok {
		return notDuplicate("semantic comparison skipped: query embedding unavailable")
	}

	best := scoreCandidates(ctx, m.embedder, query, candidates, nil)
	if best.index < 0 {
		return notDuplicate("semantic comparison skipped: no candidate embeddings available")
	}

	if best.similarity <= m.threshold {
		res := notDuplicate(fmt.Sprintf("best semantic similarity %.3f <= %.3f", best.similarity, m.threshold))
		res.Similarity = max(0, best.similarity)

		return res
	}

	id := candidates[best.index].ID

	m.logger.Debug().
		Str(logKeyMatchedID, id).
		Float64(logKeySimilarity, best.similarity).
		Msg("semantic duplicate")

	return Result{
		IsDuplicate: true,
		MatchedID:   id,
		Similarity:  best.similarity,
		Method:      MethodSemantic,
		Reason:      fmt.Sprintf("semantic similarity %.3f > %.3f", best.similarity, m.threshold),
	}
}

type bestMatch struct {
	index      int
	similarity float64
}

// scoreCandidates embeds each candidate and returns the one most similar to query.
// When vecs is non-nil it holds precomputed candidate vectors of the query's
// model (nil entries are skipped). Candidates embedded by another model are
// not comparable and are skipped.
func scoreCandidates(ctx context.Context, embedder Embedder, query domain.Embedding, candidates []domain.Candidate, vecs [][]float32) bestMatch {
	best := bestMatch{index: -1}

	for i, c := range candidates {
		var vec []float32

		if vecs != nil {
			vec = vecs[i]
		} else if emb, ok := embed(ctx, embedder, Normalize(c.ComparableText())); ok && emb.Model == query.Model {
			vec = emb.Vector
		}

		if vec == nil {
			continue
		}

		sim := float64(CosineSimilarity(query.Vector, vec))
		if best.index < 0 || sim > best.similarity {
			best = bestMatch{index: i, similarity: sim}
		}
	}

	return best
}
