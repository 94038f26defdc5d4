// Package dedupe keeps the freshest position report per vessel identity.
package dedupe

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMaxSize caps the number of distinct vessels held.
// If maxSize > 0: new identities beyond the cap are dropped, known ones still update.
// If maxSize <= 0: unbounded.
func WithMaxSize(maxSize int) Option {
	return func(a *Aggregator) {
		a.maxSize = maxSize
	}
}
