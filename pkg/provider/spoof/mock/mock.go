// Package mock provides a test double for the spoof package interface.
package mock

import (
	"context"
	"sync"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
)

// ClassifyCall records a single invocation of Classifier.Classify.
type ClassifyCall struct {
	// Samples is the window passed to Classify.
	Samples []float64
}

// Classifier is a mock implementation of spoof.Provider.
type Classifier struct {
	mu sync.Mutex

	// Result is returned from Classify when Err is nil.
	Result spoof.Result

	// Err, if non-nil, is returned as the error from Classify.
	Err error

	// Calls records every call to Classify.
	Calls []ClassifyCall
}

// Compile-time assertion that Classifier implements spoof.Provider.
var _ spoof.Provider = (*Classifier)(nil)

// Classify records the call and returns the scripted result.
func (c *Classifier) Classify(_ context.Context, samples []float64) (spoof.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, ClassifyCall{Samples: samples})
	if c.Err != nil {
		return spoof.Result{}, c.Err
	}
	return c.Result, nil
}

// CallCount returns the number of recorded Classify calls.
func (c *Classifier) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}
