package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"vad":     {"energy"},
	"stt":     {"whisper"},
	"diarize": {"pyannote"},
	"mt":      {"opusmt"},
	"llm":     {"openai", "gemini", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields with production defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Pipeline.Mode == "" {
		cfg.Pipeline.Mode = ModeContinuous
	}
	if cfg.Pipeline.FastInterval <= 0 {
		cfg.Pipeline.FastInterval = Duration(2 * time.Second)
	}
	if cfg.Pipeline.SlowInterval <= 0 {
		cfg.Pipeline.SlowInterval = Duration(12 * time.Second)
	}
	if cfg.Pipeline.StageTimeout <= 0 {
		cfg.Pipeline.StageTimeout = Duration(60 * time.Second)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Pipeline
	if cfg.Pipeline.Mode != "" && !cfg.Pipeline.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("pipeline.mode %q is invalid; valid values: continuous, single_shot", cfg.Pipeline.Mode))
	}
	if cfg.Pipeline.FastInterval > 0 && cfg.Pipeline.SlowInterval > 0 &&
		cfg.Pipeline.SlowInterval < cfg.Pipeline.FastInterval {
		errs = append(errs, fmt.Errorf("pipeline.slow_interval (%s) must not be shorter than pipeline.fast_interval (%s)",
			cfg.Pipeline.SlowInterval.Std(), cfg.Pipeline.FastInterval.Std()))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderEntry("vad", cfg.Providers.VAD)
	validateProviderEntry("stt", cfg.Providers.STT)
	validateProviderEntry("diarize", cfg.Providers.Diarize)
	validateProviderEntry("mt", cfg.Providers.MT)
	validateProviderEntry("llm", cfg.Providers.LLM)

	// Degradation warnings — every stage is optional, but silence about a
	// missing one makes for confusing empty output.
	if cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt is not configured; transcripts will be empty")
	}
	if cfg.Providers.Diarize.Name == "" {
		slog.Warn("providers.diarize is not configured; fragments will keep provisional speaker labels")
	}
	if cfg.Providers.MT.Name == "" {
		slog.Warn("providers.mt is not configured; translation is disabled")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; insight extraction is disabled")
	}
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; meetings will not survive a restart")
	}

	return errors.Join(errs...)
}

// validateProviderEntry warns about unknown provider names for entry and its
// fallbacks. Fallbacks with an empty name are ignored by the registry, so an
// explicit warning helps catch indentation mistakes.
func validateProviderEntry(kind string, entry ProviderEntry) {
	validateProviderName(kind, entry.Name)
	for i, fb := range entry.Fallbacks {
		if fb.Name == "" {
			slog.Warn("provider fallback entry has no name and will be ignored",
				"kind", kind, "index", i)
			continue
		}
		validateProviderName(kind, fb.Name)
	}
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
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
