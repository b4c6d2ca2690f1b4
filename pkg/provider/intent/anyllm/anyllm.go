// Package anyllm provides an intent classifier backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// Usage:
//
//	c, err := anyllm.New("ollama", "llama3.2")
//	c, err := anyllm.NewAnthropic("claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
)

const systemPrompt = `You are a fraud analyst reviewing live phone-call transcripts.
Classify the caller's intent in the transcript fragment you are given.
Respond with exactly one word: "scam" if the fragment shows an attempt to extract
credentials, payment, codes or personal data under false pretenses, otherwise "safe".`

// defaultConfidence is attached to model verdicts; none of the wrapped
// backends expose a calibrated probability for a one-word answer.
const defaultConfidence = 0.85

// Compile-time assertion that Classifier implements intent.Provider.
var _ intent.Provider = (*Classifier)(nil)

// completionBackend is the slice of the any-llm-go provider surface the
// classifier needs; one-word verdicts never stream.
type completionBackend interface {
	Completion(ctx context.Context, params anyllmlib.CompletionParams) (*anyllmlib.ChatCompletion, error)
}

// Classifier implements intent.Provider by wrapping github.com/mozilla-ai/any-llm-go.
type Classifier struct {
	backend completionBackend
	model   string
}

// New creates a new Classifier backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama", "deepseek",
// "mistral", "groq", "llamacpp", "llamafile".
//
// model is the specific model to use (e.g., "gpt-4o-mini", "llama3.2").
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the backend falls
// back to the relevant environment variable (OPENAI_API_KEY,
// ANTHROPIC_API_KEY, etc.).
func New(providerName string, model string, opts ...anyllmlib.Option) (*Classifier, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm intent: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm intent: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm intent: create %q backend: %w", providerName, err)
	}

	return &Classifier{backend: backend, model: model}, nil
}

// NewOpenAI creates a Classifier backed by OpenAI.
// Without options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(model string, opts ...anyllmlib.Option) (*Classifier, error) {
	return New("openai", model, opts...)
}

// NewAnthropic creates a Classifier backed by Anthropic.
// Without options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, opts ...anyllmlib.Option) (*Classifier, error) {
	return New("anthropic", model, opts...)
}

// NewOllama creates a Classifier backed by Ollama (local inference).
// Without options, it connects to http://localhost:11434.
func NewOllama(model string, opts ...anyllmlib.Option) (*Classifier, error) {
	return New("ollama", model, opts...)
}

// createBackend creates the underlying any-llm-go provider for the given provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Classify implements intent.Provider.
func (c *Classifier) Classify(ctx context.Context, text string) (intent.Result, error) {
	temperature := 0.0
	maxTokens := 8
	params := anyllmlib.CompletionParams{
		Model: c.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: text},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	resp, err := c.backend.Completion(ctx, params)
	if err != nil {
		return intent.Result{}, fmt.Errorf("anyllm intent: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return intent.Result{}, fmt.Errorf("anyllm intent: empty choices in response")
	}

	label := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if label == "" {
		return intent.Result{}, fmt.Errorf("anyllm intent: completion returned empty verdict")
	}
	return intent.FromModelLabel(label, defaultConfidence), nil
}
