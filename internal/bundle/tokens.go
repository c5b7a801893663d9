package bundle

import "unicode/utf8"

// TokenCounter estimates how many model tokens a text consumes
type TokenCounter interface {
	Count(text string) int
}

// TokenCounterFunc adapts a function to TokenCounter
type TokenCounterFunc func(text string) int

// Count calls f
func (f TokenCounterFunc) Count(text string) int {
	return f(text)
}

// EstimateTokens uses the rough 4 characters per token approximation,
// rounded up so any non-empty text costs at least one token
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// DefaultCounter is the rune-based estimator
var DefaultCounter TokenCounter = TokenCounterFunc(EstimateTokens)
