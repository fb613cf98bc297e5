package dedup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-dedup/internal/core/domain"
)

// ClusterMatcher compares the query only with candidates that belong to a
// DBSCAN cluster of retellings. Isolated candidates are ignored.
type ClusterMatcher struct {
	embedder  Embedder
	threshold float64
	eps       float64
	minSize   int
	logger    *zerolog.Logger
}

// NewClusterMatcher creates a cluster stage.
func NewClusterMatcher(embedder Embedder, threshold, eps float64, minSize int, logger *zerolog.Logger) *ClusterMatcher {
	return &ClusterMatcher{
		embedder:  embedder,
		threshold: threshold,
		eps:       eps,
		minSize:   minSize,
		logger:    logger,
	}
}

func (m *ClusterMatcher) Method() Method { return MethodCluster }

// Match clusters the candidates and returns the best clustered candidate above the threshold.
func (m *ClusterMatcher) Match(ctx context.Context, text string, candidates []domain.Candidate) Result {
	if len(candidates) < m.minSize {
		return notDuplicate(fmt.Sprintf("too few candidates for clustering (%d < %d)", len(candidates), m.minSize))
	}

	embs := make([]domain.Embedding, len(candidates))
	available := 0

	for i, c := range candidates {
		emb, ok := embed(ctx, m.embedder, Normalize(c.ComparableText()))
		if !ok {
			continue
		}

		embs[i] = emb
		available++
	}

	if available < m.minSize {
		return notDuplicate(fmt.Sprintf("too few candidate embeddings for clustering (%d < %d)", available, m.minSize))
	}

	query, ok := embed(ctx, m.embedder, text)
	if !ok {
		return notDuplicate("cluster comparison skipped: query embedding unavailable")
	}

	vecs := make([][]float32, len(candidates))
	points := make([][]float32, 0, len(candidates))
	pointIdx := make([]int, 0, len(candidates))

	for i, emb := range embs {
		if emb.Vector == nil || emb.Model != query.Model {
			continue
		}

		vecs[i] = emb.Vector
		points = append(points, emb.Vector)
		pointIdx = append(pointIdx, i)
	}

	if len(points) < m.minSize {
		return notDuplicate(fmt.Sprintf("too few candidate embeddings of model %s for clustering (%d < %d)", query.Model, len(points), m.minSize))
	}

	labels := dbscan(points, m.eps, m.minSize)

	clusterOf := make([]int, len(candidates))
	clustered := make([][]float32, len(candidates))

	for i := range clusterOf {
		clusterOf[i] = noise
	}

	inCluster := 0

	for p, label := range labels {
		if label == noise {
			continue
		}

		i := pointIdx[p]
		clusterOf[i] = label
		clustered[i] = vecs[i]
		inCluster++
	}

	if inCluster == 0 {
		return notDuplicate("no candidate clusters found")
	}

	best := scoreCandidates(ctx, m.embedder, query, candidates, clustered)

	if best.similarity <= m.threshold {
		res := notDuplicate(fmt.Sprintf("best clustered similarity %.3f <= %.3f", best.similarity, m.threshold))
		res.Similarity = max(0, best.similarity)

		return res
	}

	id := candidates[best.index].ID
	clusterID := clusterOf[best.index]

	m.logger.Debug().
		Str(logKeyMatchedID, id).
		Int("cluster_id", clusterID).
		Float64(logKeySimilarity, best.similarity).
		Msg("cluster duplicate")

	return Result{
		IsDuplicate: true,
		MatchedID:   id,
		Similarity:  best.similarity,
		Method:      MethodCluster,
		Reason:      fmt.Sprintf("similarity %.3f > %.3f to member of cluster %d", best.similarity, m.threshold, clusterID),
		ClusterID:   &clusterID,
	}
}
