// Package transcribe defines the Provider interface for speech-to-text
// backends used by the call-analysis pipeline.
//
// A transcriber maps one analysis window — normalised float PCM samples at
// 16 kHz mono — to transcript text and a detected language. Unlike a
// streaming STT session, the pipeline submits complete windows as batch
// requests, so the interface is a single blocking call.
//
// Implementations must be safe for concurrent use: many calls may be
// analysed simultaneously and they all share one provider instance.
package transcribe

import "context"

// Result is the outcome of transcribing one analysis window.
type Result struct {
	// Text is the transcribed speech. Empty when the window contains no
	// recognisable speech.
	Text string

	// Language is the detected language code (e.g. "fr", "en"), or
	// "unknown" when the backend does not report one.
	Language string
}

// Provider is the abstraction over any batch transcription backend.
type Provider interface {
	// Transcribe converts one window of float PCM samples in [-1, 1] at
	// 16 kHz mono into text. It blocks until inference completes or ctx is
	// cancelled. Errors are recoverable: the caller degrades to a
	// deterministic heuristic rather than failing the call.
	Transcribe(ctx context.Context, samples []float64) (Result, error)
}
