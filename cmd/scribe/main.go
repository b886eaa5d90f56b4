// Command scribe is the main entry point for the meeting scribe server.
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

	"github.com/weihan0529/global-meeting-scribe/internal/app"
	"github.com/weihan0529/global-meeting-scribe/internal/config"
	"github.com/weihan0529/global-meeting-scribe/internal/observe"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/diarize"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/diarize/pyannote"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/llm"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/llm/anyllm"
	oaillm "github.com/weihan0529/global-meeting-scribe/pkg/provider/llm/openai"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/mt/opusmt"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/stt"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/stt/whisper"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/vad"
	"github.com/weihan0529/global-meeting-scribe/pkg/provider/vad/energy"
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
			fmt.Fprintf(os.Stderr, "scribe: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "scribe: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(cfg.Server.LogLevel.Slog())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("scribe starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "scribe"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := app.BuildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers,
		app.WithLogger(logger),
		app.WithConfigReload(*configPath, level),
	)
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

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── VAD ───────────────────────────────────────────────────────────────────

	reg.RegisterVAD("energy", func(entry config.ProviderEntry) (vad.Detector, error) {
		var opts []energy.Option
		if ms := optInt(entry.Options, "frame_ms"); ms > 0 {
			opts = append(opts, energy.WithFrameMs(ms))
		}
		if t := optFloat(entry.Options, "rms_threshold"); t > 0 {
			opts = append(opts, energy.WithRMSThreshold(t))
		}
		if ms := optInt(entry.Options, "hangover_ms"); ms > 0 {
			opts = append(opts, energy.WithHangoverMs(ms))
		}
		return energy.New(opts...), nil
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if lang := optString(entry.Options, "fallback_language"); lang != "" {
			opts = append(opts, whisper.WithFallbackLanguage(lang))
		}
		return whisper.New(entry.Model, opts...)
	})

	// ── Diarization ───────────────────────────────────────────────────────────

	reg.RegisterDiarize("pyannote", func(entry config.ProviderEntry) (diarize.Diarizer, error) {
		var opts []pyannote.Option
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, pyannote.WithTimeout(d))
		}
		return pyannote.New(entry.BaseURL, opts...), nil
	})

	// ── Machine translation ───────────────────────────────────────────────────

	reg.RegisterMT("opusmt", func(entry config.ProviderEntry) (mt.Translator, error) {
		var opts []opusmt.Option
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, opusmt.WithTimeout(d))
		}
		return opusmt.New(entry.BaseURL, opts...), nil
	})

	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai goes through the official SDK; the rest share the any-llm
	// pattern of optional APIKey + optional BaseURL.

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          scribe — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("VAD", cfg.Providers.VAD.Name, "")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("Diarize", cfg.Providers.Diarize.Name, "")
	printProvider("MT", cfg.Providers.MT.Name, "")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	if cfg.Store.PostgresDSN != "" {
		fmt.Printf("║  Store           : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Store           : %-19s ║\n", "in-memory")
	}
	fmt.Printf("║  Pipeline mode   : %-19s ║\n", cfg.Pipeline.Mode)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an int value from a provider Options map.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// optFloat extracts a float value from a provider Options map.
func optFloat(opts map[string]any, key string) float64 {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// optDuration parses a duration string ("30s") from a provider Options map.
func optDuration(opts map[string]any, key string) time.Duration {
	s := optString(opts, key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("invalid duration in provider options", "key", key, "value", s)
		return 0
	}
	return d
}
