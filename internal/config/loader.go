package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known backend names per analysis stage.
// Used by [Validate] to warn about unrecognised names.
var ValidProviderNames = map[string][]string{
	"transcriber": {"stub", "whisper", "whisper-native"},
	"spoof":       {"rms", "remote"},
	"intent":      {"heuristic", "openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.Analysis.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_concurrent %d must not be negative", cfg.Analysis.MaxConcurrent))
	}

	validateProviderName("transcriber", cfg.Providers.Transcriber.Name)
	validateProviderName("spoof", cfg.Providers.Spoof.Name)
	validateProviderName("intent", cfg.Providers.Intent.Name)

	// Backend-specific requirements.
	switch cfg.Providers.Transcriber.Name {
	case "whisper":
		if cfg.Providers.Transcriber.BaseURL == "" {
			errs = append(errs, errors.New("providers.transcriber.base_url is required for the whisper server backend"))
		}
	case "whisper-native":
		if cfg.Providers.Transcriber.Model == "" {
			errs = append(errs, errors.New("providers.transcriber.model (ggml model path) is required for whisper-native"))
		}
	}
	if cfg.Providers.Spoof.Name == "remote" && cfg.Providers.Spoof.BaseURL == "" {
		errs = append(errs, errors.New("providers.spoof.base_url is required for the remote backend"))
	}

	if cfg.Providers.Intent.Name == "" {
		slog.Info("no intent backend configured; using the keyword heuristic")
	}
	if cfg.Storage.PostgresDSN == "" {
		slog.Info("storage.postgres_dsn is empty; end-of-call reports are not persisted")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party backend",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
