package embeddings

import (
	"math"
	"strings"
	"unicode/utf8"
)

// charsPerToken is a rough estimate used for token budgeting.
const charsPerToken = 4

// PadToTargetDimensions pads or truncates a vector to the target dimensions.
// Zero-padding is mathematically safe for cosine similarity because
// zero values do not affect the angle between vectors.
func PadToTargetDimensions(vec []float32, target int) []float32 {
	if target <= 0 || len(vec) == target {
		return vec
	}

	if len(vec) > target {
		return vec[:target]
	}

	padded := make([]float32, target)
	copy(padded, vec)

	return padded
}

// Normalize returns a unit-length copy of vec. Zero vectors are returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	out := make([]float32, len(vec))
	copy(out, vec)

	if sum == 0 {
		return out
	}

	norm := math.Sqrt(sum)
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}

	return out
}

// TruncateToTokens shortens text to an estimated maxTokens budget,
// cutting at the last word boundary when one is close to the limit.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}

	maxChars := maxTokens * charsPerToken
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:maxChars])

	if idx := strings.LastIndexByte(cut, ' '); idx > len(cut)/2 {
		cut = cut[:idx]
	}

	return strings.TrimSpace(cut)
}

// estimateTokens estimates the number of tokens for a text.
func estimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + charsPerToken - 1) / charsPerToken
}
