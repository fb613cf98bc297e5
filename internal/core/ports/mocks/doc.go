// Package mocks provides test doubles for ports interfaces.
//
// These mocks are designed to be simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that mirrors the production adapter's contract
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Call counters for verifying which collaborators were touched
//   - Clear/Reset methods for test isolation
//
// # Usage Example
//
//	func TestDetector(t *testing.T) {
//		store := mocks.NewNewsStore()
//		id := store.Add(domain.Candidate{Title: "...", Content: "..."})
//
//		engine, _ := dedup.New(dedup.DefaultConfig(), dedup.Deps{Store: store, Merger: store, Embedder: embedder})
//		// ... test detection behavior
//	}
//
// # Available Mocks
//
//   - NewsStore: implements ports.NewsStore
//   - EmbeddingCache: implements ports.EmbeddingCache and ports.ExpiringCache
package mocks
