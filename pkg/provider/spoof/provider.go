// Package spoof defines the Provider interface for synthetic-voice
// detection backends.
//
// A spoof classifier inspects one analysis window of PCM samples and decides
// whether the voice is a live human ("genuine") or synthesized/replayed
// audio ("synthetic"), with a confidence in [0, 1].
//
// Implementations must be safe for concurrent use.
package spoof

import "context"

// Label is the classifier verdict for one window.
type Label string

const (
	// LabelGenuine marks a window judged to be a live human voice.
	LabelGenuine Label = "genuine"

	// LabelSynthetic marks a window judged to be synthesized or replayed.
	LabelSynthetic Label = "synthetic"
)

// Result is the outcome of classifying one analysis window.
type Result struct {
	Label      Label
	Confidence float64
}

// Provider is the abstraction over any spoof-detection backend.
type Provider interface {
	// Classify inspects one window of float PCM samples in [-1, 1] at
	// 16 kHz mono. It blocks until inference completes or ctx is
	// cancelled. Errors are recoverable: the caller degrades to the RMS
	// loudness heuristic rather than failing the call.
	Classify(ctx context.Context, samples []float64) (Result, error)
}
