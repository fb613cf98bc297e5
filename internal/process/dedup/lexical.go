package dedup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-dedup/internal/core/domain"
)

// LexicalMatcher finds near-verbatim reposts by edit distance.
// The first candidate above the threshold wins.
type LexicalMatcher struct {
	threshold float64
	logger    *zerolog.Logger
}

// NewLexicalMatcher creates a lexical stage. threshold is the minimum similarity to exceed.
func NewLexicalMatcher(threshold float64, logger *zerolog.Logger) *LexicalMatcher {
	return &LexicalMatcher{threshold: threshold, logger: logger}
}

func (m *LexicalMatcher) Method() Method { return MethodLexical }

// Match compares text against each candidate in order and returns the first duplicate.
func (m *LexicalMatcher) Match(ctx context.Context, text string, candidates []domain.Candidate) Result {
	query := []rune(text)

	for _, c := range candidates {
		if ctx.Err() != nil {
			return notDuplicate("lexical comparison cancelled")
		}

		sim, ok := lexicalSimilarity(query, []rune(Normalize(c.ComparableText())), m.threshold)
		if !ok || sim <= m.threshold {
			continue
		}

		m.logger.Debug().
			Str(logKeyMatchedID, c.ID).
			Float64(logKeySimilarity, sim).
			Msg("lexical duplicate")

		return Result{
			IsDuplicate: true,
			MatchedID:   c.ID,
			Similarity:  sim,
			Method:      MethodLexical,
			Reason:      fmt.Sprintf("lexical similarity %.3f > %.3f", sim, m.threshold),
		}
	}

	return notDuplicate("no lexical match")
}
