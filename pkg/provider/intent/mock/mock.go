// Package mock provides a mock intent provider for testing.
package mock

import (
	"context"
	"sync"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
)

// Compile-time assertion that Classifier implements intent.Provider.
var _ intent.Provider = (*Classifier)(nil)

// Classifier is a configurable mock implementation of intent.Provider.
// It records every call and is safe for concurrent use.
type Classifier struct {
	mu sync.Mutex

	// Result is returned from Classify when Results is empty.
	Result intent.Result

	// Results, if non-empty, is consumed one entry per Classify call; after
	// the last entry, Result is returned.
	Results []intent.Result

	// Err, if set, is returned from every Classify call.
	Err error

	// Calls records the text passed to each Classify invocation.
	Calls []string
}

// Classify implements intent.Provider.
func (c *Classifier) Classify(_ context.Context, text string) (intent.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls = append(c.Calls, text)
	if c.Err != nil {
		return intent.Result{}, c.Err
	}
	if len(c.Results) > 0 {
		r := c.Results[0]
		c.Results = c.Results[1:]
		return r, nil
	}
	return c.Result, nil
}

// CallCount returns the number of times Classify was invoked.
func (c *Classifier) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}
