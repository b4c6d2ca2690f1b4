// Package rms provides the loudness-heuristic spoof classifier used as the
// last-resort fallback when no real liveness model is available or a backend
// call fails.
//
// The heuristic is crude on purpose: quiet or empty windows are treated as
// possibly-synthetic at low confidence, loud windows as genuine. It never
// errors, which makes it safe as the terminal fallback in the pipeline.
package rms

import (
	"context"

	"github.com/Plasmow/VoiceScamShield/pkg/audio"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
)

// genuineRMS is the energy level above which a window is assumed to carry a
// live voice.
const genuineRMS = 0.12

// Compile-time assertion that Classifier implements spoof.Provider.
var _ spoof.Provider = (*Classifier)(nil)

// Classifier is the RMS loudness heuristic. The zero value is ready to use
// and safe for concurrent use.
type Classifier struct{}

// New returns a new heuristic Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify labels loud windows genuine and everything else synthetic at low
// confidence. It never returns an error and ignores ctx.
func (c *Classifier) Classify(_ context.Context, samples []float64) (spoof.Result, error) {
	if len(samples) == 0 {
		return spoof.Result{Label: spoof.LabelSynthetic, Confidence: 0.5}, nil
	}
	if audio.RMS(samples) > genuineRMS {
		return spoof.Result{Label: spoof.LabelGenuine, Confidence: 0.8}, nil
	}
	return spoof.Result{Label: spoof.LabelSynthetic, Confidence: 0.5}, nil
}
