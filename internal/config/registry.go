package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory
// has been registered under the requested backend name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps backend names to their constructor functions for each
// analysis stage. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	transcriber map[string]func(ProviderEntry) (transcribe.Provider, error)
	spoof       map[string]func(ProviderEntry) (spoof.Provider, error)
	intent      map[string]func(ProviderEntry) (intent.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		transcriber: make(map[string]func(ProviderEntry) (transcribe.Provider, error)),
		spoof:       make(map[string]func(ProviderEntry) (spoof.Provider, error)),
		intent:      make(map[string]func(ProviderEntry) (intent.Provider, error)),
	}
}

// RegisterTranscriber registers a transcription backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterTranscriber(name string, factory func(ProviderEntry) (transcribe.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcriber[name] = factory
}

// RegisterSpoof registers a spoof classifier factory under name.
func (r *Registry) RegisterSpoof(name string, factory func(ProviderEntry) (spoof.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoof[name] = factory
}

// RegisterIntent registers an intent classifier factory under name.
func (r *Registry) RegisterIntent(name string, factory func(ProviderEntry) (intent.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intent[name] = factory
}

// CreateTranscriber constructs the transcription backend selected by entry.
func (r *Registry) CreateTranscriber(entry ProviderEntry) (transcribe.Provider, error) {
	r.mu.RLock()
	factory, ok := r.transcriber[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transcriber %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSpoof constructs the spoof classifier selected by entry.
func (r *Registry) CreateSpoof(entry ProviderEntry) (spoof.Provider, error) {
	r.mu.RLock()
	factory, ok := r.spoof[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: spoof classifier %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateIntent constructs the intent classifier selected by entry.
func (r *Registry) CreateIntent(entry ProviderEntry) (intent.Provider, error) {
	r.mu.RLock()
	factory, ok := r.intent[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: intent classifier %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
