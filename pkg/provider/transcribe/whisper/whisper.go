// Package whisper provides whisper.cpp-backed transcribers.
//
// Two flavours are available, mirroring how whisper.cpp is deployed:
//
//   - [Provider] talks to a running whisper-server binary over HTTP
//     (POST /inference with a multipart WAV upload).
//   - [NativeProvider] links whisper.cpp directly via its CGO bindings and
//     keeps the model resident in-process.
//
// Both submit one analysis window per request; the pipeline already handles
// windowing, so no silence detection or buffering happens here.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080", whisper.WithLanguage("fr"))
//	res, err := p.Transcribe(ctx, window)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Plasmow/VoiceScamShield/pkg/audio"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
)

const (
	defaultSampleRate = 16000
	defaultTimeout    = 30 * time.Second
)

// Compile-time assertion that Provider implements transcribe.Provider.
var _ transcribe.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper-server
// (e.g. "tiny", "base", "small"). When empty the server uses whichever model
// it was started with — that is the default.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the language hint sent with each request (e.g. "fr",
// "en"). When empty the server auto-detects, which is the default; the
// detected language is reported back in the result.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithSampleRate overrides the sample rate used when encoding windows as WAV.
// It must match the rate of the samples handed to Transcribe. Defaults to
// 16000.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// Provider implements transcribe.Provider backed by a whisper-server HTTP
// endpoint. It is safe for concurrent use; requests from simultaneous calls
// share one http.Client.
type Provider struct {
	serverURL  string
	model      string
	language   string
	sampleRate int
	httpClient *http.Client
}

// New creates a Provider that submits inference requests to the
// whisper-server at serverURL (e.g. "http://localhost:8080"). serverURL must
// be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		sampleRate: defaultSampleRate,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// inferenceResponse is the subset of the whisper-server JSON response the
// provider consumes.
type inferenceResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe encodes the window as a WAV file and POSTs it to the
// whisper-server /inference endpoint as multipart/form-data.
func (p *Provider) Transcribe(ctx context.Context, samples []float64) (transcribe.Result, error) {
	wav := audio.EncodeWAV(samples, p.sampleRate)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: write wav data: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language", p.language); err != nil {
			return transcribe.Result{}, fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if p.model != "" {
		if err := mw.WriteField("model", p.model); err != nil {
			return transcribe.Result{}, fmt.Errorf("whisper: write model field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return transcribe.Result{}, fmt.Errorf("whisper: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: decode response: %w", err)
	}

	lang := out.Language
	if lang == "" {
		lang = p.language
	}
	if lang == "" {
		lang = "unknown"
	}
	return transcribe.Result{
		Text:     strings.TrimSpace(out.Text),
		Language: lang,
	}, nil
}
