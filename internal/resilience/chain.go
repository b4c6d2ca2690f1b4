package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [Chain] fails or has an
// open breaker.
var ErrAllFailed = errors.New("all backends failed")

// ChainConfig configures the per-entry breaker created for each backend in
// a [Chain].
type ChainConfig struct {
	Breaker BreakerConfig
}

type chainEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain wraps a primary and zero or more fallback instances of the same
// backend type. When the primary fails, or its breaker is open, the next
// healthy fallback is tried in registration order.
//
// Chain is safe for concurrent use once assembled; Add must not race with Do.
type Chain[T any] struct {
	entries []chainEntry[T]
	cfg     ChainConfig
}

// NewChain creates a [Chain] with primary as the first entry.
func NewChain[T any](primary T, primaryName string, cfg ChainConfig) *Chain[T] {
	c := &Chain[T]{cfg: cfg}
	c.Add(primaryName, primary)
	return c
}

// Add appends a fallback backend, tried after all earlier entries.
func (c *Chain[T]) Add(name string, backend T) {
	bCfg := c.cfg.Breaker
	bCfg.Name = name
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		value:   backend,
		breaker: NewBreaker(bCfg),
	})
}

// Do tries fn against each entry in order until one succeeds, skipping
// entries with an open breaker. The result of the first success is
// returned; if every entry fails the last error is wrapped in
// [ErrAllFailed]. This is a package-level function because Go does not
// support method-level type parameters.
func Do[T any, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range c.entries {
		entry := &c.entries[i]
		var result R
		err := entry.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping backend (circuit open)", "backend", entry.name)
		} else {
			slog.Warn("backend failed, trying next",
				"backend", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
