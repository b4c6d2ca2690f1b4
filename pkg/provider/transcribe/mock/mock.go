// Package mock provides a test double for the transcribe package interface.
//
// Use Transcriber to script results and inspect the windows delivered by the
// pipeline:
//
//	tr := &mock.Transcriber{Result: transcribe.Result{Text: "hello", Language: "en"}}
//	res, _ := tr.Transcribe(ctx, window)
package mock

import (
	"context"
	"sync"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Samples is the window passed to Transcribe.
	Samples []float64
}

// Transcriber is a mock implementation of transcribe.Provider.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned from Transcribe when Err is nil.
	Result transcribe.Result

	// Results, when non-empty, is consumed one entry per call before
	// falling back to Result.
	Results []transcribe.Result

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every call to Transcribe.
	Calls []TranscribeCall
}

// Compile-time assertion that Transcriber implements transcribe.Provider.
var _ transcribe.Provider = (*Transcriber)(nil)

// Transcribe records the call and returns the scripted result.
func (t *Transcriber) Transcribe(_ context.Context, samples []float64) (transcribe.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, TranscribeCall{Samples: samples})
	if t.Err != nil {
		return transcribe.Result{}, t.Err
	}
	if len(t.Results) > 0 {
		res := t.Results[0]
		t.Results = t.Results[1:]
		return res, nil
	}
	return t.Result, nil
}

// CallCount returns the number of recorded Transcribe calls.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
