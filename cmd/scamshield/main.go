// Command scamshield runs the streaming voice-scam analysis server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/Plasmow/VoiceScamShield/internal/app"
	"github.com/Plasmow/VoiceScamShield/internal/config"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
	intentanyllm "github.com/Plasmow/VoiceScamShield/pkg/provider/intent/anyllm"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent/heuristic"
	intentopenai "github.com/Plasmow/VoiceScamShield/pkg/provider/intent/openai"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
	spoofremote "github.com/Plasmow/VoiceScamShield/pkg/provider/spoof/remote"
	spoofrms "github.com/Plasmow/VoiceScamShield/pkg/provider/spoof/rms"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
	transcribestub "github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe/stub"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "scamshield: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "scamshield: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := &slog.LevelVar{}
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("scamshield starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Hot config reload (log level only; other changes need a restart) ──────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		changes := config.Diff(old, new)
		if changes.LogLevelChanged {
			level.Set(slogLevel(changes.NewLogLevel))
			slog.Info("log level changed", "level", changes.NewLogLevel)
		}
		if changes.RestartRequired() {
			slog.Warn("config change requires a restart to take effect")
		}
	})
	if err != nil {
		slog.Error("failed to watch config", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with the server. Used for startup logging.
var builtinProviders = map[string][]string{
	"transcriber": {"stub", "whisper", "whisper-native"},
	"spoof":       {"rms", "remote"},
	"intent": {
		"heuristic", "openai", "anthropic", "gemini", "ollama",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the backend
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Transcribers ──────────────────────────────────────────────────────────

	reg.RegisterTranscriber("stub", func(_ config.ProviderEntry) (transcribe.Provider, error) {
		return transcribestub.New(), nil
	})

	reg.RegisterTranscriber("whisper", func(entry config.ProviderEntry) (transcribe.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterTranscriber("whisper-native", func(entry config.ProviderEntry) (transcribe.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if entry.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(entry.Language))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	// ── Spoof classifiers ─────────────────────────────────────────────────────

	reg.RegisterSpoof("rms", func(_ config.ProviderEntry) (spoof.Provider, error) {
		return spoofrms.New(), nil
	})

	reg.RegisterSpoof("remote", func(entry config.ProviderEntry) (spoof.Provider, error) {
		return spoofremote.New(entry.BaseURL)
	})

	// ── Intent classifiers ────────────────────────────────────────────────────

	reg.RegisterIntent("heuristic", func(_ config.ProviderEntry) (intent.Provider, error) {
		return heuristic.New(), nil
	})

	// openai uses the native SDK for first-class control over the request.
	reg.RegisterIntent("openai", func(entry config.ProviderEntry) (intent.Provider, error) {
		var opts []intentopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, intentopenai.WithBaseURL(entry.BaseURL))
		}
		return intentopenai.New(entry.APIKey, entry.Model, opts...)
	})

	// The remaining hosted backends share the any-llm pattern: optional
	// APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterIntent(providerName, func(entry config.ProviderEntry) (intent.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return intentanyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterIntent("ollama", func(entry config.ProviderEntry) (intent.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return intentanyllm.New("ollama", entry.Model, opts...)
	})

	// Debug log of all registered providers.
	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates the providers named in cfg using the registry.
// An empty name leaves the field nil, which selects the built-in heuristic
// for that stage.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.Transcriber.Name; name != "" {
		p, err := reg.CreateTranscriber(cfg.Providers.Transcriber)
		if err != nil {
			return nil, fmt.Errorf("create transcriber %q: %w", name, err)
		}
		ps.Transcriber = p
		slog.Info("provider created", "kind", "transcriber", "name", name)
	}

	if name := cfg.Providers.Spoof.Name; name != "" {
		p, err := reg.CreateSpoof(cfg.Providers.Spoof)
		if err != nil {
			return nil, fmt.Errorf("create spoof classifier %q: %w", name, err)
		}
		ps.Spoof = p
		slog.Info("provider created", "kind", "spoof", "name", name)
	}

	if name := cfg.Providers.Intent.Name; name != "" {
		p, err := reg.CreateIntent(cfg.Providers.Intent)
		if err != nil {
			return nil, fmt.Errorf("create intent classifier %q: %w", name, err)
		}
		ps.Intent = p
		slog.Info("provider created", "kind", "intent", "name", name)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      VoiceScamShield — startup        ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Transcriber", cfg.Providers.Transcriber.Name, cfg.Providers.Transcriber.Model)
	printProvider("Spoof", cfg.Providers.Spoof.Name, cfg.Providers.Spoof.Model)
	printProvider("Intent", cfg.Providers.Intent.Name, cfg.Providers.Intent.Model)
	if cfg.Storage.PostgresDSN != "" {
		fmt.Printf("║  Reports      : %-22s ║\n", "postgres")
	} else {
		fmt.Printf("║  Reports      : %-22s ║\n", "(in-process only)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr  : %-22s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(heuristic)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 22 {
		value = value[:19] + "…"
	}
	fmt.Printf("║  %-11s  : %-22s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
