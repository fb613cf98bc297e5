package dedup

// levenshtein returns the edit distance between a and b when it is at most
// limit, and limit+1 otherwise. Only the diagonal band of width 2*limit+1 is
// evaluated, so rejecting a distant pair costs O(limit*len) instead of O(len^2).
func levenshtein(a, b []rune, limit int) int {
	if len(a) < len(b) {
		a, b = b, a
	}

	n, m := len(a), len(b)
	inf := limit + 1

	if n-m > limit {
		return inf
	}

	if m == 0 {
		return n
	}

	prev := make([]int, m+1)
	curr := make([]int, m+1)

	for j := range prev {
		prev[j] = min(j, inf)
	}

	for i := 1; i <= n; i++ {
		lo := max(1, i-limit)
		hi := min(m, i+limit)

		curr[lo-1] = inf
		if lo == 1 {
			curr[0] = min(i, inf)
		}

		rowMin := curr[lo-1]

		for j := lo; j <= hi; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			v := min(prev[j-1]+cost, prev[j]+1, curr[j-1]+1, inf)
			curr[j] = v
			rowMin = min(rowMin, v)
		}

		if hi < m {
			curr[hi+1] = inf
		}

		if rowMin > limit {
			return inf
		}

		prev, curr = curr, prev
	}

	return min(prev[m], inf)
}

// lexicalSimilarity returns 1 - distance/maxLen, or ok=false when the pair
// cannot exceed threshold or both texts are empty.
func lexicalSimilarity(a, b []rune, threshold float64) (float64, bool) {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0, false
	}

	// similarity > threshold  <=>  distance < (1-threshold)*longest.
	// One extra unit of slack keeps float rounding from pruning a real match.
	limit := int((1-threshold)*float64(longest)) + 1
	limit = min(limit, longest)

	d := levenshtein(a, b, limit)
	if d > limit {
		return 0, false
	}

	return 1 - float64(d)/float64(longest), true
}

// LexicalSimilarity returns the normalized edit similarity of two normalized texts in [0, 1].
// Two empty texts have similarity 0.
func LexicalSimilarity(a, b string) float64 {
	sim, _ := lexicalSimilarity([]rune(a), []rune(b), 0)
	return sim
}
