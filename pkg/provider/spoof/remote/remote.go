// Package remote provides a spoof classifier backed by an external
// anti-spoofing inference service over HTTP.
//
// The service receives each analysis window as a WAV upload and responds
// with a JSON verdict:
//
//	POST /classify
//	→ {"label": "genuine"|"synthetic", "confidence": 0.87}
//
// Any liveness model served behind this contract works (spectral-flatness
// scorers, AASIST-style deep models, commercial APIs behind a shim).
package remote

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
	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
)

const (
	defaultSampleRate = 16000
	defaultTimeout    = 15 * time.Second
)

// Compile-time assertion that Classifier implements spoof.Provider.
var _ spoof.Provider = (*Classifier)(nil)

// Option is a functional option for configuring a Classifier.
type Option func(*Classifier)

// WithTimeout sets the per-request HTTP timeout. Defaults to 15 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.httpClient.Timeout = d }
}

// WithSampleRate overrides the sample rate used when encoding windows as
// WAV. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(c *Classifier) { c.sampleRate = rate }
}

// Classifier implements spoof.Provider against a remote classification
// service. Safe for concurrent use.
type Classifier struct {
	serverURL  string
	sampleRate int
	httpClient *http.Client
}

// New creates a Classifier that submits windows to the service at serverURL
// (e.g. "http://localhost:9090"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Classifier, error) {
	if serverURL == "" {
		return nil, errors.New("spoof remote: serverURL must not be empty")
	}
	c := &Classifier{
		serverURL:  strings.TrimRight(serverURL, "/"),
		sampleRate: defaultSampleRate,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// classifyResponse is the JSON verdict returned by the service.
type classifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classify uploads the window as WAV and returns the service's verdict.
func (c *Classifier) Classify(ctx context.Context, samples []float64) (spoof.Result, error) {
	wav := audio.EncodeWAV(samples, c.sampleRate)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return spoof.Result{}, fmt.Errorf("spoof remote: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return spoof.Result{}, fmt.Errorf("spoof remote: write wav data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return spoof.Result{}, fmt.Errorf("spoof remote: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/classify", &body)
	if err != nil {
		return spoof.Result{}, fmt.Errorf("spoof remote: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return spoof.Result{}, fmt.Errorf("spoof remote: classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return spoof.Result{}, fmt.Errorf("spoof remote: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return spoof.Result{}, fmt.Errorf("spoof remote: decode response: %w", err)
	}

	label := spoof.Label(out.Label)
	if label != spoof.LabelGenuine && label != spoof.LabelSynthetic {
		return spoof.Result{}, fmt.Errorf("spoof remote: unexpected label %q", out.Label)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return spoof.Result{}, fmt.Errorf("spoof remote: confidence %v out of range", out.Confidence)
	}
	return spoof.Result{Label: label, Confidence: out.Confidence}, nil
}
