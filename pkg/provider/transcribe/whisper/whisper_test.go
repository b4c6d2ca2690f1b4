package whisper_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe/whisper"
)

// newMockServer responds to POST /inference with the given JSON body and
// records the last received multipart form for inspection.
func newMockServer(t *testing.T, status int, body map[string]string, callCount *atomic.Int32, lastForm *map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if callCount != nil {
			callCount.Add(1)
		}
		if lastForm != nil {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			form := map[string]string{}
			for key, values := range r.MultipartForm.Value {
				form[key] = values[0]
			}
			if files := r.MultipartForm.File["file"]; len(files) > 0 {
				f, err := files[0].Open()
				if err != nil {
					t.Errorf("open wav part: %v", err)
				} else {
					data, _ := io.ReadAll(f)
					f.Close()
					if !bytes.HasPrefix(data, []byte("RIFF")) {
						t.Errorf("uploaded file is not a WAV, starts with %q", data[:4])
					}
				}
			}
			*lastForm = form
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestNewEmptyServerURL(t *testing.T) {
	if _, err := whisper.New(""); err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestTranscribe(t *testing.T) {
	var calls atomic.Int32
	srv := newMockServer(t, http.StatusOK, map[string]string{"text": " bonjour madame ", "language": "fr"}, &calls, nil)
	defer srv.Close()

	p, err := whisper.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Transcribe(context.Background(), make([]float64, 16000))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "bonjour madame" {
		t.Errorf("expected trimmed text, got %q", res.Text)
	}
	if res.Language != "fr" {
		t.Errorf("expected language fr, got %q", res.Language)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 inference request, got %d", calls.Load())
	}
}

func TestTranscribeForwardsLanguageAndModel(t *testing.T) {
	var form map[string]string
	srv := newMockServer(t, http.StatusOK, map[string]string{"text": "ok"}, nil, &form)
	defer srv.Close()

	p, err := whisper.New(srv.URL, whisper.WithLanguage("fr"), whisper.WithModel("base"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), make([]float64, 1600)); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if form["language"] != "fr" {
		t.Errorf("expected language field fr, got %q", form["language"])
	}
	if form["model"] != "base" {
		t.Errorf("expected model field base, got %q", form["model"])
	}
}

func TestTranscribeLanguageFallback(t *testing.T) {
	srv := newMockServer(t, http.StatusOK, map[string]string{"text": "hi"}, nil, nil)
	defer srv.Close()

	t.Run("configured hint", func(t *testing.T) {
		p, _ := whisper.New(srv.URL, whisper.WithLanguage("en"))
		res, err := p.Transcribe(context.Background(), make([]float64, 1600))
		if err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
		if res.Language != "en" {
			t.Errorf("expected configured hint en, got %q", res.Language)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		p, _ := whisper.New(srv.URL)
		res, err := p.Transcribe(context.Background(), make([]float64, 1600))
		if err != nil {
			t.Fatalf("Transcribe: %v", err)
		}
		if res.Language != "unknown" {
			t.Errorf("expected unknown, got %q", res.Language)
		}
	})
}

func TestTranscribeServerError(t *testing.T) {
	srv := newMockServer(t, http.StatusInternalServerError, map[string]string{"error": "model not loaded"}, nil, nil)
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	if _, err := p.Transcribe(context.Background(), make([]float64, 1600)); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestTranscribeContextCancelled(t *testing.T) {
	srv := newMockServer(t, http.StatusOK, map[string]string{"text": "hi"}, nil, nil)
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Transcribe(ctx, make([]float64, 1600)); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
