package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
	intentmock "github.com/Plasmow/VoiceScamShield/pkg/provider/intent/mock"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
	transcribemock "github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe/mock"
)

func TestChainPrimarySucceeds(t *testing.T) {
	c := NewChain("primary-value", "primary", ChainConfig{})
	c.Add("fallback", "fallback-value")

	got, err := Do(c, func(v string) (string, error) { return v, nil })
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "primary-value" {
		t.Errorf("result = %q, want primary-value", got)
	}
}

func TestChainFailsOver(t *testing.T) {
	c := NewChain("broken", "primary", ChainConfig{})
	c.Add("fallback", "healthy")

	got, err := Do(c, func(v string) (string, error) {
		if v == "broken" {
			return "", errBackend
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "healthy" {
		t.Errorf("result = %q, want healthy", got)
	}
}

func TestChainAllFail(t *testing.T) {
	c := NewChain("a", "primary", ChainConfig{})
	c.Add("fallback", "b")

	_, err := Do(c, func(string) (string, error) { return "", errBackend })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestChainSkipsOpenBreaker(t *testing.T) {
	cfg := ChainConfig{Breaker: BreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour}}
	c := NewChain("primary-value", "primary", cfg)
	c.Add("fallback", "fallback-value")

	// Trip the primary's breaker.
	Do(c, func(v string) (string, error) {
		if v == "primary-value" {
			return "", errBackend
		}
		return v, nil
	})

	primaryCalls := 0
	got, err := Do(c, func(v string) (string, error) {
		if v == "primary-value" {
			primaryCalls++
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if primaryCalls != 0 {
		t.Error("primary called despite open breaker")
	}
	if got != "fallback-value" {
		t.Errorf("result = %q, want fallback-value", got)
	}
}

func TestTranscribeChainFailover(t *testing.T) {
	primary := &transcribemock.Transcriber{Err: errBackend}
	fallback := &transcribemock.Transcriber{
		Result: transcribe.Result{Text: "bonjour", Language: "fr"},
	}

	chain := NewTranscribeChain(primary, "primary", ChainConfig{})
	chain.AddFallback("stub", fallback)

	got, err := chain.Transcribe(context.Background(), []float64{0.1, 0.2})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got.Text != "bonjour" || got.Language != "fr" {
		t.Errorf("result = %+v, want the fallback's transcript", got)
	}
	if primary.CallCount() != 1 {
		t.Errorf("primary calls = %d, want 1", primary.CallCount())
	}
}

func TestIntentChainFailover(t *testing.T) {
	primary := &intentmock.Classifier{Err: errBackend}
	fallback := &intentmock.Classifier{
		Result: intent.Result{Label: intent.LabelScam, Confidence: 0.92, Rationale: "keyword match"},
	}

	chain := NewIntentChain(primary, "ml", ChainConfig{})
	chain.AddFallback("heuristic", fallback)

	got, err := chain.Classify(context.Background(), "transfer the money")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Label != intent.LabelScam {
		t.Errorf("label = %q, want scam from the fallback", got.Label)
	}
}
