package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Plasmow/VoiceScamShield/internal/config"
	"github.com/Plasmow/VoiceScamShield/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: "127.0.0.1:0",
			LogLevel:   config.LogInfo,
		},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(), nil,
		WithSegmentStore(storage.NewMemStore()), WithoutTelemetry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestAppServesOperationalEndpoints(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	for _, path := range []string{"/", "/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestAppRunAndShutdown(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	// Wait for the listener to come up.
	deadline := time.Now().Add(3 * time.Second)
	for a.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("listener never came up")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + a.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if a.ActiveCalls() != 0 {
		t.Errorf("expected no active calls, got %d", a.ActiveCalls())
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled from Run, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	// Second call is a no-op.
	if err := a.Shutdown(shutdownCtx); err != nil {
		t.Errorf("repeated Shutdown: %v", err)
	}
}

func TestAppDefaultsToHeuristics(t *testing.T) {
	a := newTestApp(t)
	if got := a.transcribeChain(nil); got != nil {
		t.Errorf("nil transcriber must stay nil, got %T", got)
	}
	if got := a.spoofChain(nil); got != nil {
		t.Errorf("nil spoof classifier must stay nil, got %T", got)
	}
	if got := a.intentChain(nil); got != nil {
		t.Errorf("nil intent classifier must stay nil, got %T", got)
	}
}
