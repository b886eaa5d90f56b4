// Package app wires the scribe subsystems into a running server process.
//
// The App struct owns the full lifecycle: New connects the store, the
// translation router, the insight extractor, and the HTTP server; Run
// serves until the context is cancelled; Shutdown tears everything down
// in reverse order.
//
// For testing, inject doubles via functional options (WithStore,
// WithMetrics). When an option is not provided, New creates the real
// implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/weihan0529/global-meeting-scribe/internal/config"
	"github.com/weihan0529/global-meeting-scribe/internal/health"
	"github.com/weihan0529/global-meeting-scribe/internal/insight"
	"github.com/weihan0529/global-meeting-scribe/internal/language"
	"github.com/weihan0529/global-meeting-scribe/internal/observe"
	"github.com/weihan0529/global-meeting-scribe/internal/server"
	"github.com/weihan0529/global-meeting-scribe/internal/session"
	"github.com/weihan0529/global-meeting-scribe/internal/store"
	"github.com/weihan0529/global-meeting-scribe/internal/store/postgres"
	"github.com/weihan0529/global-meeting-scribe/internal/transcript"
	"github.com/weihan0529/global-meeting-scribe/internal/translate"
)

// shutdownGrace bounds the HTTP server drain during Shutdown.
const shutdownGrace = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	store   store.Store
	srv     *server.Server
	http    *http.Server
	metrics *observe.Metrics
	watcher *config.Watcher

	level   *slog.LevelVar
	cfgPath string
	log     *slog.Logger

	// closers run in reverse order during Shutdown.
	closers  []func(context.Context) error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles
// or to enable optional behavior.
type Option func(*App)

// WithStore injects a meetings store instead of creating one from config.
func WithStore(st store.Store) Option {
	return func(a *App) { a.store = st }
}

// WithMetrics injects a metrics set instead of using the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogger sets the application logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithConfigReload enables hot reload: path is watched for changes and
// level, when non-nil, is adjusted when the configured log level changes.
func WithConfigReload(path string, level *slog.LevelVar) Option {
	return func(a *App) {
		a.cfgPath = path
		a.level = level
	}
}

// New wires all subsystems together. The providers struct comes from
// [BuildProviders] (or is hand-assembled in tests).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	a.closeProvidersOnShutdown()

	col := session.Collaborators{
		VAD:         providers.VAD,
		Transcriber: providers.STT,
		Diarizer:    providers.Diarizer,
	}
	if providers.MT != nil {
		col.Translator = a.buildRouter(ctx)
	}
	if providers.LLM != nil {
		col.Insights = insight.NewLLMExtractor(providers.LLM, a.log)
	}
	if len(cfg.Pipeline.Glossary) > 0 {
		col.Corrector = transcript.NewGlossaryCorrector(cfg.Pipeline.Glossary)
	}

	a.srv = server.New(server.Config{
		Pipeline: a.pipelineConfig(),
		Logger:   a.log,
	}, col, a.store, health.New(a.healthCheckers()...), a.metrics)

	a.http = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initStore connects PostgreSQL when a DSN is configured and falls back to
// the in-memory store otherwise.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	dsn := a.cfg.Store.PostgresDSN
	if dsn == "" {
		a.log.Warn("no postgres_dsn configured, meetings are kept in memory only")
		a.store = store.NewMemStore()
		return nil
	}

	pg, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return err
	}
	a.store = pg
	a.closers = append(a.closers, func(context.Context) error {
		pg.Close()
		return nil
	})
	return nil
}

// closeProvidersOnShutdown registers Close for providers that hold native
// resources (the whisper transcriber keeps a loaded model).
func (a *App) closeProvidersOnShutdown() {
	for _, p := range []any{a.providers.VAD, a.providers.STT, a.providers.Diarizer, a.providers.MT, a.providers.LLM} {
		if c, ok := p.(io.Closer); ok {
			a.closers = append(a.closers, func(context.Context) error { return c.Close() })
		}
	}
}

// buildRouter queries the translation backend for its served pairs so the
// router degrades around models the backend did not load. When the query
// fails the stock pair table is used instead.
func (a *App) buildRouter(ctx context.Context) *translate.Router {
	table, err := translate.PairTableFromTranslator(ctx, a.providers.MT)
	if err != nil {
		a.log.Warn("could not query served translation pairs, using stock table", "error", err)
		table = translate.DefaultPairTable()
	} else {
		a.log.Info("translation pair table loaded", "pairs", table.Len())
	}
	return translate.NewRouter(a.providers.MT, table, a.log)
}

// pipelineConfig converts the YAML pipeline block into the session template.
func (a *App) pipelineConfig() session.Config {
	pc := a.cfg.Pipeline
	sc := session.Config{
		Mode:         session.ModeContinuous,
		FastInterval: pc.FastInterval.Std(),
		SlowInterval: pc.SlowInterval.Std(),
		StageTimeout: pc.StageTimeout.Std(),
		Logger:       a.log,
	}
	if pc.Mode == config.ModeSingleShot {
		sc.Mode = session.ModeSingleShot
	}
	if pc.TargetLanguage != "" {
		sc.TargetLanguage = language.Code(pc.TargetLanguage)
	}
	return sc
}

// healthCheckers assembles readiness checks for the store and any
// sidecar-backed providers.
func (a *App) healthCheckers() []health.Checker {
	var checkers []health.Checker
	if p, ok := a.store.(health.Pinger); ok {
		checkers = append(checkers, health.StoreChecker(p))
	}

	type healthier interface {
		Healthy(ctx context.Context) bool
	}
	if h, ok := a.providers.Diarizer.(healthier); ok {
		checkers = append(checkers, health.SidecarChecker("diarize", h.Healthy))
	}
	if h, ok := a.providers.MT.(healthier); ok {
		checkers = append(checkers, health.SidecarChecker("translate", h.Healthy))
	}
	return checkers
}

// Run serves HTTP until ctx is cancelled or the listener fails. Config hot
// reload, when enabled, runs for the lifetime of the call.
func (a *App) Run(ctx context.Context) error {
	if a.cfgPath != "" {
		w, err := config.NewWatcher(a.cfgPath, a.applyReload)
		if err != nil {
			a.log.Warn("config watcher disabled", "path", a.cfgPath, "error", err)
		} else {
			a.watcher = w
			defer w.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.http.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.http.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	a.log.Info("server listening",
		"addr", a.cfg.Server.ListenAddr,
		"mode", a.cfg.Pipeline.Mode,
		"tls", a.cfg.Server.TLS != nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	}
}

// applyReload is the config watcher callback. Log level and default target
// language take effect immediately; anything else needs a restart.
func (a *App) applyReload(old, updated *config.Config) {
	diff := config.Diff(old, updated)
	if diff.Empty() {
		return
	}

	if diff.LogLevelChanged && a.level != nil {
		a.level.Set(diff.NewLogLevel.Slog())
		a.log.Info("log level changed", "level", diff.NewLogLevel)
	}
	if diff.TargetLanguageChanged {
		code := ""
		if diff.NewTargetLanguage != "" {
			code = language.Code(diff.NewTargetLanguage)
		}
		a.srv.SetDefaultTargetLanguage(code)
		a.log.Info("default target language changed", "target", code)
	}
	if diff.RestartRequired {
		a.log.Warn("configuration change requires a restart to take effect")
	}
}

// Shutdown drains the HTTP server and tears down subsystems in reverse-init
// order. It respects the context deadline: remaining closers are skipped
// once ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		if a.watcher != nil {
			a.watcher.Stop()
		}

		drainCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
		defer cancel()
		if err := a.http.Shutdown(drainCtx); err != nil {
			a.log.Warn("http server drain failed", "error", err)
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				a.log.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](ctx); err != nil {
				a.log.Warn("closer failed", "index", i, "error", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}
