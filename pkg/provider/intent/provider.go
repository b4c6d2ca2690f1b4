// Package intent defines the Provider interface for scam-intent
// classification backends.
//
// An intent classifier maps transcript text to one of three labels — safe,
// suspicious, or scam — with a confidence in [0, 1] and a short rationale
// explaining the verdict. The default implementation is the deterministic
// keyword matcher in the heuristic subpackage; ML-backed variants plug in
// behind the same interface.
//
// Implementations must be safe for concurrent use.
package intent

import (
	"context"
	"strings"
)

// Label is the classifier verdict for a transcript.
type Label string

const (
	LabelSafe       Label = "safe"
	LabelSuspicious Label = "suspicious"
	LabelScam       Label = "scam"
)

// Result is the outcome of classifying a transcript.
type Result struct {
	Label      Label
	Confidence float64

	// Rationale is a short human-readable explanation of the verdict,
	// surfaced verbatim to the client.
	Rationale string
}

// Provider is the abstraction over any intent-classification backend.
type Provider interface {
	// Classify maps transcript text to a verdict. It blocks until
	// inference completes or ctx is cancelled. Errors are recoverable:
	// the caller degrades to the keyword heuristic rather than failing
	// the call.
	Classify(ctx context.Context, text string) (Result, error)
}

// scamMarkers are the substrings of an ML model's own label that map the
// verdict to scam. Any other model label maps to safe.
var scamMarkers = []string{"scam", "fraud", "spam", "illegal"}

// FromModelLabel converts an ML backend's free-form label and confidence
// into a Result. A label containing any of scam/fraud/spam/illegal maps to
// [LabelScam], everything else to [LabelSafe]; the model's own label is kept
// as the rationale.
func FromModelLabel(label string, confidence float64) Result {
	lower := strings.ToLower(label)
	out := Result{
		Label:      LabelSafe,
		Confidence: confidence,
		Rationale:  "model predicted " + lower,
	}
	for _, marker := range scamMarkers {
		if strings.Contains(lower, marker) {
			out.Label = LabelScam
			break
		}
	}
	return out
}
