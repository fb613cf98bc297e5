// Package dedup decides whether an incoming news post repeats a recently stored item.
//
// Detection runs three stages in order and stops at the first duplicate:
//   - lexical: edit distance on normalized text, first candidate over the threshold wins
//   - semantic: cosine similarity of embeddings, best candidate wins
//   - cluster: DBSCAN over candidate embeddings, best clustered candidate wins
//
// Stages never fail. Unavailable embeddings or a failed candidate fetch turn
// into a negative result with a reason, so ingestion is never blocked.
package dedup

import (
	"context"
	"math"

	"github.com/lueurxax/news-dedup/internal/core/domain"
)

// Method names the stage that produced a result.
type Method string

// Detection methods.
const (
	MethodNone     Method = "none"
	MethodLexical  Method = "lexical"
	MethodSemantic Method = "semantic"
	MethodCluster  Method = "cluster"
)

// Log key constants.
const (
	logKeyMethod     = "method"
	logKeyMatchedID  = "matched_id"
	logKeySimilarity = "similarity"
	logKeyReason     = "reason"
	logKeyCandidates = "candidates"
)

// Result is the verdict of one detection call or one stage.
// IsDuplicate implies MatchedID is set and Similarity is above the stage threshold.
type Result struct {
	IsDuplicate bool    `json:"is_duplicate"`
	MatchedID   string  `json:"matched_id,omitempty"`
	Similarity  float64 `json:"similarity"`
	Method      Method  `json:"method"`
	Reason      string  `json:"reason"`
	ClusterID   *int    `json:"cluster_id,omitempty"`
}

func notDuplicate(reason string) Result {
	return Result{Method: MethodNone, Reason: reason}
}

// Embedder produces unit-length embeddings tagged with their model. ok is
// false when no vector could be produced. Implementations must be comparable
// since Detect memoizes results per embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) (emb domain.Embedding, ok bool)
}

// Matcher is a single detection stage. text is already normalized.
type Matcher interface {
	Method() Method
	Match(ctx context.Context, text string, candidates []domain.Candidate) Result
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
