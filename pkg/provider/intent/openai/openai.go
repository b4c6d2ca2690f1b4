// Package openai provides an intent classifier backed by the OpenAI chat
// completions API. The model is asked for a single-word verdict which is then
// mapped onto the intent label set; any label the model invents that mentions
// scam, fraud, spam or illegal activity collapses to scam.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
)

const systemPrompt = `You are a fraud analyst reviewing live phone-call transcripts.
Classify the caller's intent in the transcript fragment you are given.
Respond with exactly one word: "scam" if the fragment shows an attempt to extract
credentials, payment, codes or personal data under false pretenses, otherwise "safe".`

// defaultConfidence is attached to model verdicts; the chat API does not
// expose a calibrated probability for a one-word answer.
const defaultConfidence = 0.85

// Compile-time assertion that Classifier implements intent.Provider.
var _ intent.Provider = (*Classifier)(nil)

// Classifier implements intent.Provider using the OpenAI chat completions API.
type Classifier struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the classifier.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Classifier.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// OpenAI-compatible local servers.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI-backed intent Classifier.
func New(apiKey string, model string, opts ...Option) (*Classifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai intent: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai intent: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Classifier{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Classify implements intent.Provider.
func (c *Classifier) Classify(ctx context.Context, text string) (intent.Result, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(text),
		},
		Temperature:         param.NewOpt(0.0),
		MaxCompletionTokens: param.NewOpt(int64(8)),
	})
	if err != nil {
		return intent.Result{}, fmt.Errorf("openai intent: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return intent.Result{}, fmt.Errorf("openai intent: completion returned no choices")
	}

	label := strings.TrimSpace(resp.Choices[0].Message.Content)
	if label == "" {
		return intent.Result{}, fmt.Errorf("openai intent: completion returned empty verdict")
	}
	return intent.FromModelLabel(label, defaultConfidence), nil
}
