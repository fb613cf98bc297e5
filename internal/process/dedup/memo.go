package dedup

import (
	"context"
	"sync"

	"github.com/lueurxax/news-dedup/internal/core/domain"
)

type memoCtxKey struct{}

type memoKey struct {
	embedder Embedder
	text     string
}

type memoEntry struct {
	emb domain.Embedding
	ok  bool
}

// embeddingMemo holds the embeddings computed during one Detect call so that
// later stages reuse the vectors of earlier ones. Failures are remembered too.
type embeddingMemo struct {
	mu      sync.Mutex
	entries map[memoKey]memoEntry
}

func withEmbeddingMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoCtxKey{}, &embeddingMemo{entries: make(map[memoKey]memoEntry)})
}

// embed calls e unless the memo in ctx already has the answer for text.
func embed(ctx context.Context, e Embedder, text string) (domain.Embedding, bool) {
	memo, _ := ctx.Value(memoCtxKey{}).(*embeddingMemo)
	if memo == nil {
		return e.Embed(ctx, text)
	}

	key := memoKey{embedder: e, text: text}

	memo.mu.Lock()
	entry, found := memo.entries[key]
	memo.mu.Unlock()

	if found {
		return entry.emb, entry.ok
	}

	emb, ok := e.Embed(ctx, text)

	memo.mu.Lock()
	memo.entries[key] = memoEntry{emb: emb, ok: ok}
	memo.mu.Unlock()

	return emb, ok
}
