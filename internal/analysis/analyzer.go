// Package analysis sequences the per-window pipeline: transcription,
// synthetic-voice classification, intent classification, confidence
// smoothing and event assembly. Every analyzer call is wrapped so a backend
// failure degrades to a deterministic heuristic instead of aborting the
// call; no step is retried.
package analysis

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Plasmow/VoiceScamShield/internal/call"
	"github.com/Plasmow/VoiceScamShield/internal/observe"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent/heuristic"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
	spoofrms "github.com/Plasmow/VoiceScamShield/pkg/provider/spoof/rms"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
	transcribestub "github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe/stub"
)

// Event is the analysis verdict emitted for one flushed window.
type Event struct {
	Type             string  `json:"type"`
	Speaker          string  `json:"speaker"`
	TimestampMs      int64   `json:"timestamp_ms"`
	Text             string  `json:"text"`
	Language         string  `json:"language"`
	IntentLabel      string  `json:"intent_label"`
	IntentConfidence float64 `json:"intent_confidence"`
	Rationale        string  `json:"rationale"`
	SpoofLabel       string  `json:"spoof_label"`
	SpoofConfidence  float64 `json:"spoof_confidence"`
}

// Analyzer runs the analysis pipeline for ready windows. A global weighted
// semaphore bounds how many windows are in flight across all calls; within
// one call the connection handler awaits each analysis to completion, which
// keeps per-speaker event order without any per-speaker queue.
type Analyzer struct {
	transcriber transcribe.Provider
	spoofer     spoof.Provider
	classifier  intent.Provider

	// Terminal fallbacks. These never error, so a window always yields an
	// event even when every configured backend is down.
	stubTranscriber *transcribestub.Transcriber
	rmsSpoofer      *spoofrms.Classifier
	heuristicIntent *heuristic.Classifier

	sem     *semaphore.Weighted
	metrics *observe.Metrics
}

// Option is a functional option for Analyzer.
type Option func(*Analyzer)

// WithMaxConcurrent bounds the number of windows analyzed at once across all
// calls. Default: 8.
func WithMaxConcurrent(n int64) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// New constructs an Analyzer around the three pipeline backends. Any of them
// may be nil, in which case the corresponding heuristic fallback is used
// directly.
func New(t transcribe.Provider, s spoof.Provider, i intent.Provider, opts ...Option) *Analyzer {
	a := &Analyzer{
		transcriber:     t,
		spoofer:         s,
		classifier:      i,
		stubTranscriber: transcribestub.New(),
		rmsSpoofer:      spoofrms.New(),
		heuristicIntent: heuristic.New(),
		sem:             semaphore.NewWeighted(8),
		metrics:         observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze runs the full pipeline for one flushed window and returns the
// assembled event. It blocks while the global concurrency limit is
// exhausted. The only error it can return is ctx cancellation while waiting
// for a slot; a cancelled call's window is discarded, never half-analyzed.
func (a *Analyzer) Analyze(ctx context.Context, sess *call.Session, speaker call.Speaker, timestampMs int64, window []float64) (Event, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return Event{}, err
	}
	defer a.sem.Release(1)

	ctx, span := observe.StartSpan(ctx, "analysis.window")
	defer span.End()
	start := time.Now()
	log := observe.Logger(ctx)

	// Transcription.
	tStart := time.Now()
	tr, err := a.transcribeWindow(ctx, window)
	a.metrics.TranscribeDuration.Record(ctx, time.Since(tStart).Seconds())
	if err != nil {
		a.metrics.RecordAnalyzerError(ctx, "transcribe")
		log.Warn("transcription failed, using energy heuristic",
			"call_id", sess.CallID, "speaker", speaker, "error", err)
		tr, _ = a.stubTranscriber.Transcribe(ctx, window)
	}

	// The heuristic intent classifier reads the rolling text, not just this
	// window's transcript, so scam phrases split across chunk boundaries
	// still match.
	rolling := sess.AppendTranscript(speaker, tr.Text)

	// Spoof check.
	sStart := time.Now()
	sp, err := a.classifySpoof(ctx, window)
	a.metrics.SpoofDuration.Record(ctx, time.Since(sStart).Seconds())
	if err != nil {
		a.metrics.RecordAnalyzerError(ctx, "spoof")
		log.Warn("spoof classification failed, using loudness heuristic",
			"call_id", sess.CallID, "speaker", speaker, "error", err)
		sp, _ = a.rmsSpoofer.Classify(ctx, window)
	}

	// Intent.
	iStart := time.Now()
	in, err := a.classifyIntent(ctx, rolling)
	a.metrics.IntentDuration.Record(ctx, time.Since(iStart).Seconds())
	if err != nil {
		a.metrics.RecordAnalyzerError(ctx, "intent")
		log.Warn("intent classification failed, using keyword heuristic",
			"call_id", sess.CallID, "speaker", speaker, "error", err)
		in, _ = a.heuristicIntent.Classify(ctx, rolling)
	}

	smoothed := sess.SmoothScore(speaker, in.Confidence)

	event := Event{
		Type:             "analysis",
		Speaker:          string(speaker),
		TimestampMs:      timestampMs,
		Text:             tr.Text,
		Language:         tr.Language,
		IntentLabel:      string(in.Label),
		IntentConfidence: smoothed,
		Rationale:        in.Rationale,
		SpoofLabel:       string(sp.Label),
		SpoofConfidence:  round2(sp.Confidence),
	}

	a.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())
	a.metrics.RecordAnalysisEvent(ctx, event.Speaker, event.IntentLabel)
	return event, nil
}

func (a *Analyzer) transcribeWindow(ctx context.Context, window []float64) (transcribe.Result, error) {
	if a.transcriber == nil {
		return a.stubTranscriber.Transcribe(ctx, window)
	}
	return a.transcriber.Transcribe(ctx, window)
}

func (a *Analyzer) classifySpoof(ctx context.Context, window []float64) (spoof.Result, error) {
	if a.spoofer == nil {
		return a.rmsSpoofer.Classify(ctx, window)
	}
	return a.spoofer.Classify(ctx, window)
}

func (a *Analyzer) classifyIntent(ctx context.Context, text string) (intent.Result, error) {
	if a.classifier == nil {
		return a.heuristicIntent.Classify(ctx, text)
	}
	return a.classifier.Classify(ctx, text)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
