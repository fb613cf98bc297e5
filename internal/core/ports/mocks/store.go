package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lueurxax/news-dedup/internal/core/domain"
)

// NewsStore is a thread-safe in-memory implementation of ports.NewsStore.
type NewsStore struct {
	mu           sync.RWMutex
	items        map[string]domain.Candidate
	links        map[string][]domain.SourceLink
	minRelevance float32
	now          func() time.Time

	fetchCalls int
	mergeCalls int

	// FetchCandidatesFn allows overriding FetchCandidates behavior.
	FetchCandidatesFn func(ctx context.Context, since time.Time, onlyRelevant bool, limit int) ([]domain.Candidate, error)

	// MergeSourceFn allows overriding MergeSource behavior.
	MergeSourceFn func(ctx context.Context, itemID, sourceID, sourceURL string) (bool, error)
}

// NewNewsStore creates a new mock news store with a relevance gate of 0.5.
func NewNewsStore() *NewsStore {
	return &NewsStore{
		items:        make(map[string]domain.Candidate),
		links:        make(map[string][]domain.SourceLink),
		minRelevance: 0.5,
		now:          time.Now,
	}
}

// SetMinRelevance sets the relevance gate applied when onlyRelevant is requested.
func (s *NewsStore) SetMinRelevance(v float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.minRelevance = v
}

// Add stores a candidate directly, assigning an ID and timestamp when missing.
func (s *NewsStore) Add(c domain.Candidate) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	s.items[c.ID] = c

	return c.ID
}

// FetchCandidates returns items newer than since, newest first.
func (s *NewsStore) FetchCandidates(ctx context.Context, since time.Time, onlyRelevant bool, limit int) ([]domain.Candidate, error) {
	s.mu.Lock()
	s.fetchCalls++
	s.mu.Unlock()

	if s.FetchCandidatesFn != nil {
		return s.FetchCandidatesFn(ctx, since, onlyRelevant, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Candidate, 0, len(s.items))

	for _, c := range s.items {
		if !c.CreatedAt.After(since) {
			continue
		}

		if onlyRelevant && c.RelevanceScore < s.minRelevance {
			continue
		}

		result = append(result, c)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// MergeSource links a source to an existing item. Repeated calls are no-ops.
func (s *NewsStore) MergeSource(ctx context.Context, itemID, sourceID, sourceURL string) (bool, error) {
	s.mu.Lock()
	s.mergeCalls++
	s.mu.Unlock()

	if s.MergeSourceFn != nil {
		return s.MergeSourceFn(ctx, itemID, sourceID, sourceURL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return false, ErrItemNotFound
	}

	for _, link := range s.links[itemID] {
		if link.SourceID == sourceID {
			return true, nil
		}
	}

	s.links[itemID] = append(s.links[itemID], domain.SourceLink{
		ItemID:    itemID,
		SourceID:  sourceID,
		SourceURL: sourceURL,
		CreatedAt: s.now(),
	})

	return true, nil
}

// CreateItem stores a new item and links its origin source.
func (s *NewsStore) CreateItem(_ context.Context, item domain.NewItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.now()

	s.items[id] = domain.Candidate{
		ID:             id,
		Title:          item.Title,
		Content:        item.Content,
		AISummary:      item.AISummary,
		RelevanceScore: item.RelevanceScore,
		CreatedAt:      now,
	}

	if item.SourceID != "" {
		s.links[id] = append(s.links[id], domain.SourceLink{
			ItemID:    id,
			SourceID:  item.SourceID,
			SourceURL: item.SourceURL,
			CreatedAt: now,
		})
	}

	return id, nil
}

// Links returns a copy of the source links attached to itemID.
func (s *NewsStore) Links(itemID string) []domain.SourceLink {
	s.mu.RLock()
	defer s.mu.RUnlock()

	links := make([]domain.SourceLink, len(s.links[itemID]))
	copy(links, s.links[itemID])

	return links
}

// ItemCount returns the number of stored items.
func (s *NewsStore) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// FetchCalls returns how many times FetchCandidates was called.
func (s *NewsStore) FetchCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fetchCalls
}

// MergeCalls returns how many times MergeSource was called.
func (s *NewsStore) MergeCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.mergeCalls
}

// Clear removes all items, links and counters.
func (s *NewsStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]domain.Candidate)
	s.links = make(map[string][]domain.SourceLink)
	s.fetchCalls = 0
	s.mergeCalls = 0
}
