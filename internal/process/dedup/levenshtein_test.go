package dedup

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fullLevenshtein is the textbook O(n*m) distance used as a reference.
func fullLevenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr := make([]int, len(b)+1)
		curr[0] = i

		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			curr[j] = min(prev[j-1]+cost, prev[j]+1, curr[j-1]+1)
		}

		prev = curr
	}

	return prev[len(b)]
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b  string
		limit int
		want  int
	}{
		{a: "", b: "", limit: 3, want: 0},
		{a: "abc", b: "", limit: 3, want: 3},
		{a: "abc", b: "", limit: 2, want: 3},
		{a: "kitten", b: "sitting", limit: 10, want: 3},
		{a: "kitten", b: "sitting", limit: 2, want: 3},
		{a: "мост", b: "мэр", limit: 5, want: 3},
		{a: "flaw", b: "lawn", limit: 4, want: 2},
	}

	for _, tt := range tests {
		got := levenshtein([]rune(tt.a), []rune(tt.b), tt.limit)
		if got != tt.want {
			t.Errorf("levenshtein(%q, %q, %d) = %d, want %d", tt.a, tt.b, tt.limit, got, tt.want)
		}
	}
}

func TestLevenshtein_BandMatchesFullDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("абвг")

	randomText := func() []rune {
		out := make([]rune, rng.Intn(15))
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}

		return out
	}

	for range 5000 {
		a, b := randomText(), randomText()
		limit := rng.Intn(16)

		want := fullLevenshtein(a, b)
		if want > limit {
			want = limit + 1
		}

		if got := levenshtein(a, b, limit); got != want {
			t.Fatalf("levenshtein(%q, %q, %d) = %d, want %d", string(a), string(b), limit, got, want)
		}
	}
}

func TestLexicalSimilarity(t *testing.T) {
	assert.InDelta(t, 0.0, LexicalSimilarity("", ""), testFloatTolerance, "two empty texts never match")
	assert.InDelta(t, 1.0, LexicalSimilarity("same", "same"), testFloatTolerance)
	assert.InDelta(t, 0.0, LexicalSimilarity("abc", ""), testFloatTolerance)
	assert.InDelta(t, 1-3.0/7.0, LexicalSimilarity("kitten", "sitting"), testFloatTolerance)
}

func TestLexicalSimilarity_PruningNeverHidesMatch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("ab ")

	randomText := func() []rune {
		out := make([]rune, 1+rng.Intn(30))
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}

		return out
	}

	thresholds := []float64{0.1, 0.5, 0.7, 0.85, 0.9}

	for range 2000 {
		a, b := randomText(), randomText()
		exact := 1 - float64(fullLevenshtein(a, b))/float64(max(len(a), len(b)))

		for _, th := range thresholds {
			sim, ok := lexicalSimilarity(a, b, th)
			matched := ok && sim > th

			if matched != (exact > th) {
				t.Fatalf("threshold %v: pruned=%v exact=%v for %q vs %q", th, matched, exact, string(a), string(b))
			}
		}
	}
}
