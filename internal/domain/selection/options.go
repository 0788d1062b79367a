package selection

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSource sets the random source used to draw indices.
func WithSource(src Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.src = src
		}
	}
}

// WithDefaultTopN sets the leaderboard size used when Leaderboard gets topN <= 0.
func WithDefaultTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultTopN = n
		}
	}
}
