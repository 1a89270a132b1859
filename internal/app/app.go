// Package app wires all Accentor subsystems into a running service.
//
// The App struct owns the full lifecycle: New constructs the providers, the
// phonetic cache, the history store and the HTTP server from config, Run
// serves until the context ends, and Shutdown tears everything down in order.
//
// For testing, inject mock collaborators via functional options
// (WithRecognizer, WithTranscriber, WithHistory). When an option is not
// provided, New creates real implementations from the config registry.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/accentor/internal/config"
	"github.com/MrWong99/accentor/internal/health"
	"github.com/MrWong99/accentor/internal/history"
	"github.com/MrWong99/accentor/internal/httpapi"
	"github.com/MrWong99/accentor/internal/ipacache"
	"github.com/MrWong99/accentor/internal/observe"
	"github.com/MrWong99/accentor/internal/resilience"
	"github.com/MrWong99/accentor/internal/trainer"
	"github.com/MrWong99/accentor/pkg/align"
	"github.com/MrWong99/accentor/pkg/phoneme"
	"github.com/MrWong99/accentor/pkg/provider/asr"
	"github.com/MrWong99/accentor/pkg/score"
)

// App owns all subsystem lifetimes and serves the scoring API.
type App struct {
	cfg *config.Config

	metrics     *observe.Metrics
	recognizer  asr.Provider
	transcriber phoneme.Transcriber
	attempts    history.Store
	trainers    *trainer.Cache
	server      *http.Server

	// checkers feed the /readyz endpoint; populated during init with one
	// probe per stateful backend.
	checkers []health.Checker

	// closers are called in order during Shutdown.
	closers []func() error

	// scoringMu guards the scoring section of cfg, which ApplyConfig can
	// replace on a live process.
	scoringMu sync.RWMutex

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRecognizer injects a speech recognition provider instead of building
// one from the config registry.
func WithRecognizer(p asr.Provider) Option {
	return func(a *App) { a.recognizer = p }
}

// WithTranscriber injects a phonetic transcriber instead of building one
// from the config registry. The injected transcriber is used as-is, without
// the IPA cache decorator.
func WithTranscriber(tr phoneme.Transcriber) Option {
	return func(a *App) { a.transcriber = tr }
}

// WithHistory injects an attempt store instead of creating one from config.
func WithHistory(s history.Store) Option {
	return func(a *App) { a.attempts = s }
}

// WithMetrics injects a Metrics instance instead of the process default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. Providers named in
// the config are instantiated through reg; Option functions override any
// subsystem with a test double.
func New(ctx context.Context, cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initTranscriber(ctx, reg); err != nil {
		return nil, fmt.Errorf("app: init transcriber: %w", err)
	}
	if err := a.initRecognizer(ctx, reg); err != nil {
		return nil, fmt.Errorf("app: init recognizer: %w", err)
	}
	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}

	a.trainers = trainer.NewCache(a.buildTrainer)
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.buildHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initTranscriber builds the phoneme backend and wraps it with the
// configured IPA cache. Cache hits and misses feed the metrics instruments.
func (a *App) initTranscriber(ctx context.Context, reg *config.Registry) error {
	if a.transcriber != nil {
		return nil
	}

	entry := a.cfg.Providers.Phoneme
	tr, err := reg.NewPhoneme(ctx, entry)
	if err != nil {
		return err
	}
	tr = observe.InstrumentPhoneme(entry.Name, tr, a.metrics)

	var store ipacache.Store
	if url := a.cfg.Cache.RedisURL; url != "" {
		rdb, err := ipacache.NewRedis(url, a.cfg.Cache.TTL())
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rdb.Close)
		a.checkers = append(a.checkers, health.Checker{Name: "redis", Check: rdb.Ping})
		store = rdb
	} else {
		store = ipacache.NewMemory(a.cfg.Cache.MaxEntries)
	}

	a.transcriber = ipacache.Wrap(tr, store,
		ipacache.WithLookupFunc(a.metrics.RecordCacheLookup),
	)
	slog.Info("phoneme transcriber ready", "provider", entry.Name, "redis", a.cfg.Cache.RedisURL != "")
	return nil
}

// initRecognizer builds the configured ASR providers. A single entry is used
// directly; several entries form a failover chain in config order, each
// behind its own circuit breaker.
func (a *App) initRecognizer(ctx context.Context, reg *config.Registry) error {
	if a.recognizer != nil {
		return nil
	}

	entries := a.cfg.Providers.ASR
	if len(entries) == 0 {
		return errors.New("no asr provider configured")
	}

	if len(entries) == 1 {
		p, err := reg.NewASR(ctx, entries[0])
		if err != nil {
			return err
		}
		a.closeLater(p)
		a.recognizer = observe.InstrumentASR(entries[0].Name, p, a.metrics)
		slog.Info("speech recognizer ready", "provider", entries[0].Name)
		return nil
	}

	fo := a.cfg.Providers.Failover
	failover := resilience.NewASRFailover(resilience.BreakerConfig{
		MaxFailures: fo.MaxFailures,
		Cooldown:    fo.Cooldown(),
		ProbeBudget: fo.ProbeBudget,
	})
	for _, entry := range entries {
		p, err := reg.NewASR(ctx, entry)
		if err != nil {
			return fmt.Errorf("provider %q: %w", entry.Name, err)
		}
		a.closeLater(p)
		failover.Add(entry.Name, observe.InstrumentASR(entry.Name, p, a.metrics))
	}
	a.recognizer = failover
	slog.Info("speech recognizer ready", "providers", failover.Providers())
	return nil
}

// closeLater registers v's Close method for Shutdown when it has one.
// Providers backed by local models hold native resources; HTTP-backed ones
// simply have nothing to close.
func (a *App) closeLater(v any) {
	if c, ok := v.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
}

// initHistory sets up attempt persistence per config. A disabled backend
// leaves the store nil and the listing endpoint empty.
func (a *App) initHistory(ctx context.Context) error {
	if a.attempts != nil {
		return nil
	}

	switch a.cfg.History.Backend {
	case config.HistoryDisabled:
		return nil
	case config.HistoryMemory:
		a.attempts = history.NewMemory()
	case config.HistoryPostgres:
		store, err := history.NewPostgres(ctx, a.cfg.History.PostgresDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		a.checkers = append(a.checkers, health.Checker{Name: "postgres", Check: store.Ping})
		a.attempts = store
	default:
		return fmt.Errorf("unknown history backend %q", a.cfg.History.Backend)
	}
	slog.Info("attempt history ready", "backend", a.cfg.History.Backend)
	return nil
}

// buildTrainer is the trainer.Cache factory: one Trainer per language,
// sharing the process-wide recognizer and transcriber.
func (a *App) buildTrainer(_ context.Context, lang string) (*trainer.Trainer, error) {
	a.scoringMu.RLock()
	sc := a.cfg.Scoring
	a.scoringMu.RUnlock()

	return trainer.New(lang,
		trainer.WithASR(a.recognizer),
		trainer.WithTranscriber(a.transcriber),
		trainer.WithAlignConfig(align.Config{
			InsertionCost: sc.InsertionCost,
			DeletionCost:  sc.DeletionCost,
		}),
		trainer.WithScoreOptions(score.WithThresholds(sc.GoodThreshold, sc.OKThreshold)),
		trainer.WithASRTimeout(sc.ASRTimeout()),
	)
}

// buildHandler assembles the full HTTP surface: API routes, health probes
// and the Prometheus exposition endpoint, all behind the observe middleware.
func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()

	api := httpapi.New(httpapi.Config{
		Trainers:      a.trainers,
		Languages:     a.cfg.Languages,
		History:       a.attempts,
		MaxAudioBytes: a.cfg.Server.MaxAudioBytes,
		Metrics:       a.metrics,
	})
	api.Register(mux)
	health.New(a.checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(a.metrics)(mux)
}

// Handler returns the assembled HTTP handler, for tests that drive the
// service through httptest without a listener.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Trainers returns the per-language trainer cache.
func (a *App) Trainers() *trainer.Cache { return a.trainers }

// Run serves HTTP until ctx is cancelled or the listener fails. When ctx
// ends, Run returns ctx.Err(); call Shutdown to stop the server and release
// resources.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil && tls.CertFile != "" && tls.KeyFile != "" {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("serving", "addr", a.cfg.Server.ListenAddr, "languages", a.cfg.Languages)

	select {
	case err := <-errCh:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApplyConfig applies what a running process can absorb from a config
// reload and returns the classified changes. Scoring parameters take effect
// by resetting the trainer cache; everything else is reported back so the
// caller can log which sections need a restart.
func (a *App) ApplyConfig(old, new *config.Config) config.Changes {
	changes := config.Diff(old, new)
	if changes.ScoringChanged {
		a.scoringMu.Lock()
		a.cfg.Scoring = new.Scoring
		a.scoringMu.Unlock()
		a.trainers.Reset()
		slog.Info("scoring configuration reloaded",
			"good_threshold", new.Scoring.GoodThreshold,
			"ok_threshold", new.Scoring.OKThreshold,
		)
	}
	return changes
}

// Shutdown stops the HTTP server, then tears down backends in init order.
// It respects the context deadline: if ctx expires before all closers
// finish, remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
