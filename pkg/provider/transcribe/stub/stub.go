// Package stub provides a deterministic, dependency-free transcriber used as
// the last-resort fallback when no real speech-to-text backend is available
// or a backend call fails.
//
// It never errors. The returned text is a canned phrase selected by the
// window's RMS energy band, which keeps the downstream intent pipeline
// exercised end-to-end in degraded mode.
package stub

import (
	"context"

	"github.com/Plasmow/VoiceScamShield/pkg/audio"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
)

// RMS energy bands for phrase selection. Below silenceRMS the window is
// treated as containing no speech at all.
const (
	silenceRMS = 0.01
	loudRMS    = 0.12
	midRMS     = 0.06
)

// Canned phrases by loudness band. Loud confident speech maps to the most
// scam-like phrasing so degraded mode still produces a plausible risk signal.
const (
	phraseLoud = "Bonjour, c'est le service client, transférez le code que je vous ai envoyé"
	phraseMid  = "Pouvez-vous confirmer votre numéro de compte ?"
	phraseSoft = "Bonjour, je voudrais juste vérifier des informations"
)

// Compile-time assertion that Transcriber implements transcribe.Provider.
var _ transcribe.Provider = (*Transcriber)(nil)

// Transcriber is the energy-heuristic stub transcriber. The zero value is
// ready to use and safe for concurrent use.
type Transcriber struct{}

// New returns a new stub Transcriber.
func New() *Transcriber {
	return &Transcriber{}
}

// Transcribe selects a canned phrase by RMS energy band. It never returns an
// error and ignores ctx; there is nothing to cancel.
func (t *Transcriber) Transcribe(_ context.Context, samples []float64) (transcribe.Result, error) {
	rms := audio.RMS(samples)
	switch {
	case len(samples) == 0 || rms < silenceRMS:
		return transcribe.Result{Text: "", Language: "unknown"}, nil
	case rms > loudRMS:
		return transcribe.Result{Text: phraseLoud, Language: "fr"}, nil
	case rms > midRMS:
		return transcribe.Result{Text: phraseMid, Language: "fr"}, nil
	default:
		return transcribe.Result{Text: phraseSoft, Language: "fr"}, nil
	}
}
