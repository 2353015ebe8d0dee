package retry

import "time"

// ForChat returns the retry policy for chat/completions/responses operations:
// 3 attempts, base 200ms, factor 2.0, cap 5s, jitter.
func ForChat() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// ForEmbedding returns the retry policy for embedding operations: embeddings
// are latency-critical, so this allows more attempts with a shorter cap than chat.
func ForEmbedding() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// ForReadOnly returns the retry policy for read-only operations (e.g. list models).
func ForReadOnly() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   2,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     3 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// ForImageGeneration returns the retry policy for image generation: fewer
// attempts, longer per-attempt timeouts expected from the caller.
func ForImageGeneration() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   2,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}
