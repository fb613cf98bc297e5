package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-dedup/internal/core/domain"
	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
	"github.com/lueurxax/news-dedup/internal/core/ports"
	"github.com/lueurxax/news-dedup/internal/platform/observability"
)

// Defaults.
const (
	DefaultTimeWindow        = 48 * time.Hour
	DefaultLexicalThreshold  = 0.85
	DefaultSemanticThreshold = 0.85
	DefaultMinTextLength     = 30
	DefaultClusterEps        = 0.3
	DefaultMinClusterSize    = 2
	DefaultMaxCandidates     = 100
	DefaultFetchTimeout      = 5 * time.Second

	maxCosineDistance = 2.0
)

// Reasons for results decided before any stage runs.
const (
	ReasonNoCandidates = "no candidates"
	ReasonFetchFailed  = "candidate fetch failed"
	ReasonNoDuplicates = "no duplicates found"
	reasonTooShortFmt  = "text too short (%d < %d)"
)

// Config holds the detection settings. It is validated once by New.
type Config struct {
	TimeWindow        time.Duration
	LexicalThreshold  float64 // Minimum edit similarity to exceed, in (0, 1)
	SemanticThreshold float64 // Minimum cosine similarity to exceed, in (0, 1)
	MinTextLength     int     // In runes of normalized text
	ClusterEnabled    bool
	ClusterEps        float64 // Cosine distance radius, in (0, 2]
	MinClusterSize    int
	MaxCandidates     int
	FetchTimeout      time.Duration
}

// DefaultConfig returns the default detection settings.
func DefaultConfig() Config {
	return Config{
		TimeWindow:        DefaultTimeWindow,
		LexicalThreshold:  DefaultLexicalThreshold,
		SemanticThreshold: DefaultSemanticThreshold,
		MinTextLength:     DefaultMinTextLength,
		ClusterEnabled:    true,
		ClusterEps:        DefaultClusterEps,
		MinClusterSize:    DefaultMinClusterSize,
		MaxCandidates:     DefaultMaxCandidates,
		FetchTimeout:      DefaultFetchTimeout,
	}
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{coreerrors.ErrInvalidConfig}, args...)...))
	}

	if c.TimeWindow <= 0 {
		invalid("time window must be positive, got %s", c.TimeWindow)
	}

	if c.LexicalThreshold <= 0 || c.LexicalThreshold >= 1 {
		invalid("lexical threshold must be in (0, 1), got %v", c.LexicalThreshold)
	}

	if c.SemanticThreshold <= 0 || c.SemanticThreshold >= 1 {
		invalid("semantic threshold must be in (0, 1), got %v", c.SemanticThreshold)
	}

	if c.MinTextLength <= 0 {
		invalid("min text length must be positive, got %d", c.MinTextLength)
	}

	if c.ClusterEps <= 0 || c.ClusterEps > maxCosineDistance {
		invalid("cluster eps must be in (0, 2], got %v", c.ClusterEps)
	}

	if c.MinClusterSize < 2 {
		invalid("min cluster size must be at least 2, got %d", c.MinClusterSize)
	}

	if c.MaxCandidates <= 0 {
		invalid("max candidates must be positive, got %d", c.MaxCandidates)
	}

	if c.FetchTimeout <= 0 {
		invalid("fetch timeout must be positive, got %s", c.FetchTimeout)
	}

	return errors.Join(errs...)
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Store    ports.CandidateStore
	Merger   ports.SourceMerger // Required only by DetectAndMerge
	Embedder Embedder           // Required unless Stages is set
	Stages   []Matcher          // Overrides the default lexical, semantic, cluster pipeline
	Logger   *zerolog.Logger
}

// Engine runs the detection stages. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	store  ports.CandidateStore
	merger ports.SourceMerger
	stages []Matcher
	now    func() time.Time
	logger *zerolog.Logger
}

// Request is the input of Detect.
type Request struct {
	Title   string
	Content string

	// IncludeIrrelevant disables the store's relevance gate for candidates.
	IncludeIrrelevant bool
}

// New validates cfg and builds an Engine. Configuration errors are the only errors it returns.
func New(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if deps.Store == nil {
		return nil, fmt.Errorf("%w: candidate store is required", coreerrors.ErrInvalidConfig)
	}

	if deps.Stages == nil && deps.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", coreerrors.ErrInvalidConfig)
	}

	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	stages := deps.Stages
	if stages == nil {
		stages = []Matcher{
			NewLexicalMatcher(cfg.LexicalThreshold, logger),
			NewSemanticMatcher(deps.Embedder, cfg.SemanticThreshold, logger),
		}

		if cfg.ClusterEnabled {
			stages = append(stages, NewClusterMatcher(deps.Embedder, cfg.SemanticThreshold, cfg.ClusterEps, cfg.MinClusterSize, logger))
		}
	}

	return &Engine{
		cfg:    cfg,
		store:  deps.Store,
		merger: deps.Merger,
		stages: stages,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Config returns the validated settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// Detect decides whether the post described by req repeats a recent item.
// It never fails: dependency problems produce a negative result with a reason.
func (e *Engine) Detect(ctx context.Context, req Request) Result {
	start := time.Now()
	defer func() {
		observability.DedupCheckDuration.Observe(time.Since(start).Seconds())
	}()

	text := Normalize(req.Title + " " + req.Content)

	if n := utf8.RuneCountInString(text); n < e.cfg.MinTextLength {
		observability.DedupSkipped.WithLabelValues("text_too_short").Inc()
		return e.finish(notDuplicate(fmt.Sprintf(reasonTooShortFmt, n, e.cfg.MinTextLength)))
	}

	candidates, err := e.fetchCandidates(ctx, !req.IncludeIrrelevant)
	if err != nil {
		observability.DedupCandidateFetchErrors.Inc()
		observability.DedupSkipped.WithLabelValues("fetch_failed").Inc()
		e.logger.Warn().Err(err).Msg("candidate fetch failed, treating post as new")

		return e.finish(notDuplicate(ReasonFetchFailed))
	}

	observability.DedupCandidates.Observe(float64(len(candidates)))

	if len(candidates) == 0 {
		observability.DedupSkipped.WithLabelValues("no_candidates").Inc()
		return e.finish(notDuplicate(ReasonNoCandidates))
	}

	ctx = withEmbeddingMemo(ctx)

	for _, stage := range e.stages {
		stageStart := time.Now()
		res := stage.Match(ctx, text, candidates)
		observability.DedupStageDuration.WithLabelValues(string(stage.Method())).Observe(time.Since(stageStart).Seconds())

		if res.IsDuplicate {
			return e.finish(res)
		}

		e.logger.Debug().
			Str(logKeyMethod, string(stage.Method())).
			Str(logKeyReason, res.Reason).
			Int(logKeyCandidates, len(candidates)).
			Msg("stage found no duplicate")
	}

	return e.finish(notDuplicate(ReasonNoDuplicates))
}

// DetectAndMerge runs Detect for post and, on a duplicate, links the post's
// source to the matched item. The returned error only reports a failed merge
// or a missing merger; the result is valid either way.
func (e *Engine) DetectAndMerge(ctx context.Context, post domain.Post) (Result, error) {
	res := e.Detect(ctx, Request{Title: post.Title, Content: post.Content})
	if !res.IsDuplicate {
		return res, nil
	}

	if e.merger == nil {
		return res, fmt.Errorf("%w: source merger is not configured", coreerrors.ErrInvalidConfig)
	}

	merged, err := e.merger.MergeSource(ctx, res.MatchedID, post.SourceID, post.SourceURL)
	if err != nil {
		observability.DedupSourceMerges.WithLabelValues("error").Inc()
		return res, fmt.Errorf("merge source %s into %s: %w", post.SourceID, res.MatchedID, err)
	}

	status := "merged"
	if !merged {
		status = "rejected"
	}

	observability.DedupSourceMerges.WithLabelValues(status).Inc()

	e.logger.Info().
		Str(logKeyMatchedID, res.MatchedID).
		Str("source_id", post.SourceID).
		Bool("merged", merged).
		Msg("duplicate source merged")

	return res, nil
}

func (e *Engine) fetchCandidates(ctx context.Context, onlyRelevant bool) ([]domain.Candidate, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	candidates, err := e.store.FetchCandidates(fetchCtx, e.now().Add(-e.cfg.TimeWindow), onlyRelevant, e.cfg.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	if len(candidates) > e.cfg.MaxCandidates {
		candidates = candidates[:e.cfg.MaxCandidates]
	}

	return candidates, nil
}

func (e *Engine) finish(res Result) Result {
	observability.DedupChecks.WithLabelValues(string(res.Method)).Inc()

	if res.IsDuplicate {
		e.logger.Info().
			Str(logKeyMethod, string(res.Method)).
			Str(logKeyMatchedID, res.MatchedID).
			Float64(logKeySimilarity, res.Similarity).
			Msg("duplicate detected")
	}

	return res
}
