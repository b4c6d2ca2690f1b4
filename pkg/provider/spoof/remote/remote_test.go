package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
)

func TestClassify(t *testing.T) {
	t.Run("successful verdict", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/classify" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			if _, _, err := r.FormFile("file"); err != nil {
				t.Errorf("missing file field: %v", err)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"label":      "synthetic",
				"confidence": 0.85,
			})
		}))
		defer srv.Close()

		c, err := New(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res, err := c.Classify(context.Background(), []float64{0.1, 0.2, 0.3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Label != spoof.LabelSynthetic {
			t.Errorf("expected synthetic, got %q", res.Label)
		}
		if res.Confidence != 0.85 {
			t.Errorf("expected 0.85, got %v", res.Confidence)
		}
	})

	t.Run("server error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c, _ := New(srv.URL)
		if _, err := c.Classify(context.Background(), []float64{0.1}); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("unknown label rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"label": "robot", "confidence": 0.5})
		}))
		defer srv.Close()

		c, _ := New(srv.URL)
		if _, err := c.Classify(context.Background(), []float64{0.1}); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("empty URL rejected", func(t *testing.T) {
		if _, err := New(""); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
