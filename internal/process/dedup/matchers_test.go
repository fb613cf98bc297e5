package dedup

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/news-dedup/internal/core/domain"
)

const (
	gpt5Title   = "OpenAI анонсировала GPT-5"
	gpt5Content = "Компания OpenAI официально представила языковую модель GPT-5. " +
		"По словам разработчиков, новая модель лучше справляется с рассуждениями, пишет код и понимает изображения. " +
		"Доступ к GPT-5 получат пользователи ChatGPT уже на этой неделе, а разработчики смогут подключиться через API."
	gpt5Rephrased = "Компания OpenAI официально показала языковую модель GPT-5. " +
		"По словам разработчиков, новая модель заметно лучше справляется с рассуждениями, пишет код и понимает картинки. " +
		"Доступ к GPT-5 получат пользователи ChatGPT уже на этой неделе, а разработчики смогут подключиться через API."
)

func TestLexicalMatcher_FirstOverThresholdWins(t *testing.T) {
	query := Normalize(gpt5Title + " " + gpt5Rephrased)

	candidates := []domain.Candidate{
		{ID: "unrelated", Title: "Погода в Москве", Content: "Завтра ожидается дождь и сильный ветер."},
		{ID: "near", Title: gpt5Title, Content: gpt5Content},
		{ID: "exact", Title: gpt5Title, Content: gpt5Rephrased},
	}

	res := NewLexicalMatcher(0.85, nopLogger()).Match(context.Background(), query, candidates)

	require.True(t, res.IsDuplicate)
	assert.Equal(t, "near", res.MatchedID, "lexical stage stops at the first hit, not the best one")
	assert.Equal(t, MethodLexical, res.Method)
	assert.Greater(t, res.Similarity, 0.85)
	assert.Less(t, res.Similarity, 1.0)
}

func TestLexicalMatcher_UsesSummaryWhenContentEmpty(t *testing.T) {
	query := Normalize(gpt5Title + " " + gpt5Content)

	candidates := []domain.Candidate{
		{ID: "summary-only", Title: gpt5Title, AISummary: gpt5Content},
	}

	res := NewLexicalMatcher(0.85, nopLogger()).Match(context.Background(), query, candidates)

	require.True(t, res.IsDuplicate)
	assert.Equal(t, "summary-only", res.MatchedID)
	assert.InDelta(t, 1.0, res.Similarity, testFloatTolerance)
}

func TestLexicalMatcher_EmptyCandidateTextNeverMatches(t *testing.T) {
	res := NewLexicalMatcher(0.5, nopLogger()).Match(context.Background(), "", []domain.Candidate{{ID: "empty"}})

	assert.False(t, res.IsDuplicate)
	assert.Equal(t, MethodNone, res.Method)
}

func TestLexicalMatcher_ThresholdMonotonicity(t *testing.T) {
	query := Normalize(gpt5Title + " " + gpt5Rephrased)
	candidates := []domain.Candidate{
		{ID: "near", Title: gpt5Title, Content: gpt5Content},
		{ID: "other", Title: "OpenAI выпустила обновление", Content: "Компания исправила ошибки в приложении ChatGPT."},
	}

	thresholds := []float64{0.1, 0.3, 0.5, 0.7, 0.85, 0.9, 0.95, 0.99}
	sawNegative := false

	for _, th := range thresholds {
		res := NewLexicalMatcher(th, nopLogger()).Match(context.Background(), query, candidates)

		if sawNegative {
			assert.False(t, res.IsDuplicate, "threshold %v turned a non-duplicate into a duplicate", th)
		}

		if !res.IsDuplicate {
			sawNegative = true
		}
	}

	assert.True(t, sawNegative, "0.99 must reject a rephrased text")
}

func TestSemanticMatcher_BestOf(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"query text":       unitAt(1),
		"first candidate":  unitAt(0.5),
		"second candidate": unitAt(0.91),
		"third candidate":  unitAt(0.6),
	})

	candidates := []domain.Candidate{
		candidate("c1", "First candidate"),
		candidate("c2", "Second candidate"),
		candidate("c3", "Third candidate"),
	}

	res := NewSemanticMatcher(embedder, 0.8, nopLogger()).Match(context.Background(), "query text", candidates)

	require.True(t, res.IsDuplicate)
	assert.Equal(t, "c2", res.MatchedID)
	assert.Equal(t, MethodSemantic, res.Method)
	assert.InDelta(t, 0.91, res.Similarity, testFloatTolerance)
	assert.Nil(t, res.ClusterID)
}

func TestSemanticMatcher_BestBelowThreshold(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"query text":      unitAt(1),
		"first candidate": unitAt(0.7),
	})

	res := NewSemanticMatcher(embedder, 0.8, nopLogger()).
		Match(context.Background(), "query text", []domain.Candidate{candidate("c1", "first candidate")})

	assert.False(t, res.IsDuplicate)
	assert.Empty(t, res.MatchedID)
	assert.InDelta(t, 0.7, res.Similarity, testFloatTolerance)
}

func TestSemanticMatcher_Skipped(t *testing.T) {
	candidates := []domain.Candidate{candidate("c1", "first candidate"), candidate("c2", "second candidate")}

	t.Run("query embedding unavailable", func(t *testing.T) {
		embedder := newStubEmbedder(map[string][]float32{"first candidate": unitAt(1)})

		res := NewSemanticMatcher(embedder, 0.8, nopLogger()).Match(context.Background(), "query text", candidates)

		assert.False(t, res.IsDuplicate)
		assert.Contains(t, res.Reason, "semantic comparison skipped")
		assert.Equal(t, 1, embedder.Calls(), "candidates must not be embedded without a query vector")
	})

	t.Run("all candidate embeddings unavailable", func(t *testing.T) {
		embedder := newStubEmbedder(map[string][]float32{"query text": unitAt(1)})

		res := NewSemanticMatcher(embedder, 0.8, nopLogger()).Match(context.Background(), "query text", candidates)

		assert.False(t, res.IsDuplicate)
		assert.Contains(t, res.Reason, "semantic comparison skipped")
	})

	t.Run("some candidate embeddings unavailable", func(t *testing.T) {
		embedder := newStubEmbedder(map[string][]float32{
			"query text":       unitAt(1),
			"second candidate": unitAt(0.95),
		})

		res := NewSemanticMatcher(embedder, 0.8, nopLogger()).Match(context.Background(), "query text", candidates)

		require.True(t, res.IsDuplicate)
		assert.Equal(t, "c2", res.MatchedID)
	})
}

func TestSemanticMatcher_ThresholdMonotonicity(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"query text":       unitAt(1),
		"first candidate":  unitAt(0.5),
		"second candidate": unitAt(0.91),
	})
	candidates := []domain.Candidate{candidate("c1", "first candidate"), candidate("c2", "second candidate")}

	prev := true

	for _, th := range []float64{0.1, 0.5, 0.8, 0.9, 0.91, 0.95, 0.99} {
		res := NewSemanticMatcher(embedder, th, nopLogger()).Match(context.Background(), "query text", candidates)

		if !prev {
			assert.False(t, res.IsDuplicate, "threshold %v", th)
		}

		prev = res.IsDuplicate
	}

	assert.False(t, prev)
}

// 3D vectors: a and b are near each other, c is close to the query but isolated.
func clusterFixture() (*stubEmbedder, []domain.Candidate) {
	embedder := newStubEmbedder(map[string][]float32{
		"query text":    {1, 0, 0},
		"member a":      {0.9, 0, float32(math.Sqrt(1 - 0.81))},
		"member b":      {0.85, 0, float32(math.Sqrt(1 - 0.85*0.85))},
		"isolated item": {0.99, float32(math.Sqrt(1 - 0.99*0.99)), 0},
	})

	candidates := []domain.Candidate{
		candidate("iso", "isolated item"),
		candidate("a", "member a"),
		candidate("b", "member b"),
	}

	return embedder, candidates
}

func TestClusterMatcher_ComparesOnlyClusteredCandidates(t *testing.T) {
	embedder, candidates := clusterFixture()

	res := NewClusterMatcher(embedder, 0.85, 0.05, 2, nopLogger()).Match(context.Background(), "query text", candidates)

	require.True(t, res.IsDuplicate)
	assert.Equal(t, "a", res.MatchedID, "the isolated candidate is noise even though it is closest")
	assert.Equal(t, MethodCluster, res.Method)
	assert.InDelta(t, 0.9, res.Similarity, testFloatTolerance)
	require.NotNil(t, res.ClusterID)
	assert.Equal(t, 0, *res.ClusterID)

	semantic := NewSemanticMatcher(embedder, 0.85, nopLogger()).Match(context.Background(), "query text", candidates)
	assert.Equal(t, "iso", semantic.MatchedID)
}

func TestClusterMatcher_AllNoise(t *testing.T) {
	embedder, candidates := clusterFixture()

	res := NewClusterMatcher(embedder, 0.85, 0.001, 2, nopLogger()).Match(context.Background(), "query text", candidates)

	assert.False(t, res.IsDuplicate)
	assert.Equal(t, "no candidate clusters found", res.Reason)
}

func TestClusterMatcher_BelowMinSizeEmbedsNothing(t *testing.T) {
	embedder, candidates := clusterFixture()

	res := NewClusterMatcher(embedder, 0.85, 0.05, 2, nopLogger()).Match(context.Background(), "query text", candidates[:1])

	assert.False(t, res.IsDuplicate)
	assert.Contains(t, res.Reason, "too few candidates")
	assert.Zero(t, embedder.Calls())
}

func TestClusterMatcher_TooFewValidEmbeddings(t *testing.T) {
	embedder, candidates := clusterFixture()
	candidates = append(candidates[:1], candidate("unknown", "no vector for this one"))

	res := NewClusterMatcher(embedder, 0.85, 0.05, 2, nopLogger()).Match(context.Background(), "query text", candidates)

	assert.False(t, res.IsDuplicate)
	assert.Contains(t, res.Reason, "too few candidate embeddings")
}

func TestSemanticMatcher_OppositeVectorsReportZeroSimilarity(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"query text":      {1, 0},
		"first candidate": {-1, 0},
	})

	res := NewSemanticMatcher(embedder, 0.8, nopLogger()).
		Match(context.Background(), "query text", []domain.Candidate{candidate("c1", "first candidate")})

	assert.False(t, res.IsDuplicate)
	assert.Zero(t, res.Similarity, "similarity of a non-duplicate is clamped to [0, 1]")
}

func TestClusterMatcher_OppositeClusterReportsZeroSimilarity(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"query text": {1, 0},
		"member a":   {-1, 0},
		"member b":   {-0.999, float32(math.Sqrt(1 - 0.999*0.999))},
	})
	candidates := []domain.Candidate{candidate("a", "member a"), candidate("b", "member b")}

	res := NewClusterMatcher(embedder, 0.85, 0.05, 2, nopLogger()).Match(context.Background(), "query text", candidates)

	assert.False(t, res.IsDuplicate)
	assert.Contains(t, res.Reason, "best clustered similarity")
	assert.Zero(t, res.Similarity)
}

func TestSemanticMatcher_SkipsCandidatesOfAnotherModel(t *testing.T) {
	embedder := newStubEmbedder(map[string][]float32{
		"query text":       unitAt(1),
		"first candidate":  unitAt(1),
		"second candidate": unitAt(0.5),
	})
	embedder.models["first candidate"] = "openai/text-embedding-3-small@2"

	candidates := []domain.Candidate{candidate("c1", "first candidate"), candidate("c2", "second candidate")}

	res := NewSemanticMatcher(embedder, 0.8, nopLogger()).Match(context.Background(), "query text", candidates)

	assert.False(t, res.IsDuplicate, "vectors of different models must not be compared")
	assert.InDelta(t, 0.5, res.Similarity, testFloatTolerance)

	embedder.models["second candidate"] = "openai/text-embedding-3-small@2"

	res = NewSemanticMatcher(embedder, 0.8, nopLogger()).Match(context.Background(), "query text", candidates)

	assert.False(t, res.IsDuplicate)
	assert.Contains(t, res.Reason, "no candidate embeddings available")
}

func TestClusterMatcher_IgnoresCandidatesOfAnotherModel(t *testing.T) {
	embedder, candidates := clusterFixture()
	embedder.models["member b"] = "openai/text-embedding-3-small@3"

	res := NewClusterMatcher(embedder, 0.85, 0.05, 2, nopLogger()).Match(context.Background(), "query text", candidates)

	assert.False(t, res.IsDuplicate)
	assert.Equal(t, "no candidate clusters found", res.Reason, "member a has no same-model neighbour left")

	embedder.models["member a"] = "openai/text-embedding-3-small@3"

	res = NewClusterMatcher(embedder, 0.85, 0.05, 2, nopLogger()).Match(context.Background(), "query text", candidates)

	assert.False(t, res.IsDuplicate)
	assert.Contains(t, res.Reason, "too few candidate embeddings of model "+stubModel)
}
