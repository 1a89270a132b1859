// Command accentor serves the pronunciation scoring API.
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

	"github.com/joho/godotenv"

	"github.com/MrWong99/accentor/internal/app"
	"github.com/MrWong99/accentor/internal/config"
	"github.com/MrWong99/accentor/internal/observe"
	"github.com/MrWong99/accentor/pkg/phoneme"
	"github.com/MrWong99/accentor/pkg/phoneme/goruut"
	phonememock "github.com/MrWong99/accentor/pkg/phoneme/mock"
	"github.com/MrWong99/accentor/pkg/provider/asr"
	asrmock "github.com/MrWong99/accentor/pkg/provider/asr/mock"
	"github.com/MrWong99/accentor/pkg/provider/asr/native"
	oaiasr "github.com/MrWong99/accentor/pkg/provider/asr/openai"
	"github.com/MrWong99/accentor/pkg/provider/asr/whisperapi"
)

// defaultWhisperBaseURL is where the whisper-api provider points when the
// config names no base URL.
const defaultWhisperBaseURL = "https://api.openai.com/v1"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	logLevel := flag.String("log-level", "", "override server.log_level (debug|info|warn|error)")
	logFormat := flag.String("log-format", "", "override server.log_format (text|json)")
	dotenv := flag.String("dotenv", ".env", "path to an env file loaded before the config")
	flag.Parse()

	// ── Env file ──────────────────────────────────────────────────────────────
	// Loaded before the config so ${VAR} references in the YAML resolve.
	if _, err := os.Stat(*dotenv); err == nil {
		if err := godotenv.Load(*dotenv); err != nil {
			fmt.Fprintf(os.Stderr, "accentor: load %s: %v\n", *dotenv, err)
			return 1
		}
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "accentor: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "accentor: %v\n", err)
		}
		return 1
	}
	if *logLevel != "" {
		cfg.Server.LogLevel = config.LogLevel(*logLevel)
	}
	if *logFormat != "" {
		cfg.Server.LogFormat = config.LogFormat(*logFormat)
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(cfg.Server.LogFormat, level))

	slog.Info("accentor starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"languages", cfg.Languages,
		"asr_providers", providerNames(cfg.Providers.ASR),
		"phoneme_provider", cfg.Providers.Phoneme.Name,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "accentor"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath)
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		watcher.OnChange(func(old, new *config.Config) {
			changes := application.ApplyConfig(old, new)
			if changes.LogLevelChanged {
				level.Set(slogLevel(changes.NewLogLevel))
				slog.Info("log level changed", "level", changes.NewLogLevel)
			}
			for _, section := range changes.RestartNeeded {
				slog.Warn("config change needs a restart to take effect", "section", section)
			}
		})
		watcher.Start(ctx)
		defer watcher.Stop()
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

// registerBuiltinProviders wires all shipped provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterASR("whisper-api", func(_ context.Context, entry config.ProviderEntry) (asr.Provider, error) {
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = defaultWhisperBaseURL
		}
		var opts []whisperapi.Option
		if entry.Model != "" {
			opts = append(opts, whisperapi.WithModel(entry.Model))
		}
		if entry.TimeoutSeconds > 0 {
			opts = append(opts, whisperapi.WithTimeout(entry.Timeout()))
		}
		return whisperapi.New(baseURL, apiKeyFor(entry), opts...)
	})

	reg.RegisterASR("openai", func(_ context.Context, entry config.ProviderEntry) (asr.Provider, error) {
		var opts []oaiasr.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaiasr.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, oaiasr.WithModel(entry.Model))
		}
		if entry.TimeoutSeconds > 0 {
			opts = append(opts, oaiasr.WithTimeout(entry.Timeout()))
		}
		return oaiasr.New(apiKeyFor(entry), opts...)
	})

	reg.RegisterASR("native", func(_ context.Context, entry config.ProviderEntry) (asr.Provider, error) {
		return native.New(entry.ModelPath)
	})

	// The mock providers let the service run without any credentials, for
	// smoke testing deployments and exercising the API shape.
	reg.RegisterASR("mock", func(_ context.Context, entry config.ProviderEntry) (asr.Provider, error) {
		p := &asrmock.Provider{}
		if text := optString(entry.Options, "transcript"); text != "" {
			p.Result = &asr.Transcription{Text: text}
		}
		return p, nil
	})

	reg.RegisterPhoneme("goruut", func(_ context.Context, _ config.ProviderEntry) (phoneme.Transcriber, error) {
		return goruut.New(), nil
	})

	reg.RegisterPhoneme("mock", func(_ context.Context, _ config.ProviderEntry) (phoneme.Transcriber, error) {
		return &phonememock.Transcriber{}, nil
	})
}

// apiKeyFor resolves a provider's API key: the config entry wins, then
// WHISPER_API_KEY, then OPENAI_API_KEY.
func apiKeyFor(entry config.ProviderEntry) string {
	if entry.APIKey != "" {
		return entry.APIKey
	}
	if key := os.Getenv("WHISPER_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

func providerNames(entries []config.ProviderEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(format config.LogFormat, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}
