// Package app assembles the configured providers, storage backends and the
// HTTP surface into a running service with an ordered shutdown path.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Plasmow/VoiceScamShield/internal/analysis"
	"github.com/Plasmow/VoiceScamShield/internal/config"
	"github.com/Plasmow/VoiceScamShield/internal/health"
	"github.com/Plasmow/VoiceScamShield/internal/observe"
	"github.com/Plasmow/VoiceScamShield/internal/resilience"
	"github.com/Plasmow/VoiceScamShield/internal/server"
	"github.com/Plasmow/VoiceScamShield/internal/storage"
	"github.com/Plasmow/VoiceScamShield/internal/storage/postgres"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent/heuristic"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
	spoofrms "github.com/Plasmow/VoiceScamShield/pkg/provider/spoof/rms"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
	transcribestub "github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe/stub"
)

// Providers holds the optional analysis backends selected by configuration.
// A nil field means the corresponding built-in heuristic runs directly.
type Providers struct {
	Transcriber transcribe.Provider
	Spoof       spoof.Provider
	Intent      intent.Provider
}

// App is the assembled service. Create it with [New], start it with [Run]
// and stop it with [Shutdown].
type App struct {
	cfg        *config.Config
	server     *server.Server
	httpServer *http.Server
	pool       *pgxpool.Pool

	mu   sync.Mutex
	addr string

	closers  []func(context.Context) error
	stopOnce sync.Once
}

// Option is a functional option for App.
type Option func(*appOptions)

type appOptions struct {
	store     storage.SegmentStore
	telemetry bool
}

// WithSegmentStore overrides the filesystem segment store, mainly for tests.
func WithSegmentStore(s storage.SegmentStore) Option {
	return func(o *appOptions) {
		o.store = s
	}
}

// WithoutTelemetry skips global OTel provider registration so multiple Apps
// can coexist in one test binary.
func WithoutTelemetry() Option {
	return func(o *appOptions) {
		o.telemetry = false
	}
}

// New wires the full service from configuration. Construction order: the
// telemetry provider first so every later component records against it, then
// storage, then the analysis pipeline, then the HTTP surface.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	o := &appOptions{telemetry: true}
	for _, opt := range opts {
		opt(o)
	}
	if providers == nil {
		providers = &Providers{}
	}

	a := &App{cfg: cfg}

	if o.telemetry {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			return nil, fmt.Errorf("app: init telemetry: %w", err)
		}
		a.closers = append(a.closers, shutdown)
	}

	// Segment storage.
	store := o.store
	var checkers []health.Checker
	if store == nil {
		callsDir := cfg.Storage.CallsDir
		if callsDir == "" {
			callsDir = "calls"
		}
		fsStore, err := storage.NewFSStore(callsDir)
		if err != nil {
			return nil, fmt.Errorf("app: segment store: %w", err)
		}
		store = fsStore
		checkers = append(checkers, health.StorageDir(fsStore.Dir()))
	}

	// Report persistence (optional).
	var serverOpts []server.Option
	if dsn := cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("app: report store: %w", err)
		}
		reports := postgres.NewReportStore(pool)
		if err := reports.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("app: report store migrate: %w", err)
		}
		a.pool = pool
		serverOpts = append(serverOpts, server.WithReportSaver(reports))
		checkers = append(checkers, health.ReportDB(pool))
		slog.Info("report persistence enabled")
	}

	analyzer := analysis.New(
		a.transcribeChain(providers.Transcriber),
		a.spoofChain(providers.Spoof),
		a.intentChain(providers.Intent),
		analysis.WithMaxConcurrent(cfg.Analysis.MaxConcurrent),
	)

	a.server = server.New(analyzer, store, serverOpts...)

	mux := http.NewServeMux()
	a.server.Register(mux)
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.httpServer = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// transcribeChain wraps a configured transcriber in a circuit-breaking
// fallback chain ending at the deterministic stub. A nil provider skips the
// chain entirely; the analyzer then runs the stub directly.
func (a *App) transcribeChain(p transcribe.Provider) transcribe.Provider {
	if p == nil {
		return nil
	}
	c := resilience.NewTranscribeChain(p, a.cfg.Providers.Transcriber.Name, chainConfig("transcribe"))
	c.AddFallback("stub", transcribestub.New())
	return c
}

func (a *App) spoofChain(p spoof.Provider) spoof.Provider {
	if p == nil {
		return nil
	}
	c := resilience.NewSpoofChain(p, a.cfg.Providers.Spoof.Name, chainConfig("spoof"))
	c.AddFallback("rms", spoofrms.New())
	return c
}

func (a *App) intentChain(p intent.Provider) intent.Provider {
	if p == nil {
		return nil
	}
	c := resilience.NewIntentChain(p, a.cfg.Providers.Intent.Name, chainConfig("intent"))
	c.AddFallback("heuristic", heuristic.New())
	return c
}

func chainConfig(stage string) resilience.ChainConfig {
	return resilience.ChainConfig{
		Breaker: resilience.BreakerConfig{Name: stage},
	}
}

// Handler exposes the assembled HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Addr returns the bound listen address once Run has opened the listener,
// or "" before that.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// ActiveCalls reports the number of live call sessions.
func (a *App) ActiveCalls() int {
	return a.server.ActiveCalls()
}

// Run opens the listener and serves until ctx is cancelled or the server
// fails. On cancellation it stops accepting and drains in-flight requests,
// then returns ctx.Err(); call [Shutdown] afterwards to release the
// remaining resources.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.httpServer.Addr, err)
	}
	a.mu.Lock()
	a.addr = ln.Addr().String()
	a.mu.Unlock()

	slog.Info("listening", "addr", a.addr, "tls", a.cfg.Server.TLS != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpServer.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpServer.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(drainCtx); err != nil {
			slog.Warn("drain error", "err", err)
		}
		return gctx.Err()
	})
	return g.Wait()
}

// Shutdown drains in-flight connections, then runs closers in order and
// finally releases the report store pool. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "active_calls", a.server.ActiveCalls())

		if err := a.httpServer.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
			shutdownErr = err
		}

		for i, closer := range a.closers {
			if err := closer(ctx); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		if a.pool != nil {
			a.pool.Close()
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
