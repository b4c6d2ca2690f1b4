package resilience

import (
	"context"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
)

// TranscribeChain implements [transcribe.Provider] with automatic failover
// across multiple transcription backends, each behind its own breaker.
type TranscribeChain struct {
	chain *Chain[transcribe.Provider]
}

var _ transcribe.Provider = (*TranscribeChain)(nil)

// NewTranscribeChain creates a [TranscribeChain] with primary as the
// preferred backend.
func NewTranscribeChain(primary transcribe.Provider, primaryName string, cfg ChainConfig) *TranscribeChain {
	return &TranscribeChain{chain: NewChain(primary, primaryName, cfg)}
}

// AddFallback registers an additional transcription backend.
func (t *TranscribeChain) AddFallback(name string, p transcribe.Provider) {
	t.chain.Add(name, p)
}

// Transcribe implements transcribe.Provider.
func (t *TranscribeChain) Transcribe(ctx context.Context, samples []float64) (transcribe.Result, error) {
	return Do(t.chain, func(p transcribe.Provider) (transcribe.Result, error) {
		return p.Transcribe(ctx, samples)
	})
}

// SpoofChain implements [spoof.Provider] with automatic failover across
// multiple synthetic-voice classifiers.
type SpoofChain struct {
	chain *Chain[spoof.Provider]
}

var _ spoof.Provider = (*SpoofChain)(nil)

// NewSpoofChain creates a [SpoofChain] with primary as the preferred backend.
func NewSpoofChain(primary spoof.Provider, primaryName string, cfg ChainConfig) *SpoofChain {
	return &SpoofChain{chain: NewChain(primary, primaryName, cfg)}
}

// AddFallback registers an additional spoof classifier.
func (s *SpoofChain) AddFallback(name string, p spoof.Provider) {
	s.chain.Add(name, p)
}

// Classify implements spoof.Provider.
func (s *SpoofChain) Classify(ctx context.Context, samples []float64) (spoof.Result, error) {
	return Do(s.chain, func(p spoof.Provider) (spoof.Result, error) {
		return p.Classify(ctx, samples)
	})
}

// IntentChain implements [intent.Provider] with automatic failover across
// multiple intent classifiers.
type IntentChain struct {
	chain *Chain[intent.Provider]
}

var _ intent.Provider = (*IntentChain)(nil)

// NewIntentChain creates an [IntentChain] with primary as the preferred
// backend.
func NewIntentChain(primary intent.Provider, primaryName string, cfg ChainConfig) *IntentChain {
	return &IntentChain{chain: NewChain(primary, primaryName, cfg)}
}

// AddFallback registers an additional intent classifier.
func (i *IntentChain) AddFallback(name string, p intent.Provider) {
	i.chain.Add(name, p)
}

// Classify implements intent.Provider.
func (i *IntentChain) Classify(ctx context.Context, text string) (intent.Result, error) {
	return Do(i.chain, func(p intent.Provider) (intent.Result, error) {
		return p.Classify(ctx, text)
	})
}
