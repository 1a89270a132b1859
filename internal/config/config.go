// Package config defines the YAML configuration schema for the service,
// loads and validates it, and watches the file for changes at runtime.
//
// Durations are expressed as integer seconds (or hours where noted) in the
// file and exposed as time.Duration through accessor methods, so the YAML
// stays free of format strings.
package config

import "time"

// LogLevel controls the minimum severity emitted by the process logger.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether the level is one of the supported values.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// LogFormat selects the handler used for process logs.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether the format is one of the supported values.
func (f LogFormat) IsValid() bool {
	switch f {
	case LogFormatText, LogFormatJSON:
		return true
	}
	return false
}

// HistoryBackend selects where scored attempts are persisted. The empty
// value disables persistence entirely.
type HistoryBackend string

const (
	HistoryDisabled HistoryBackend = ""
	HistoryMemory   HistoryBackend = "memory"
	HistoryPostgres HistoryBackend = "postgres"
)

// IsValid reports whether the backend is one of the supported values.
func (b HistoryBackend) IsValid() bool {
	switch b {
	case HistoryDisabled, HistoryMemory, HistoryPostgres:
		return true
	}
	return false
}

// Config is the root of the YAML configuration file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Languages []string        `yaml:"languages"`
	Cache     CacheConfig     `yaml:"cache"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds to, e.g. ":8080".
	ListenAddr string `yaml:"listen_addr"`

	LogLevel  LogLevel  `yaml:"log_level"`
	LogFormat LogFormat `yaml:"log_format"`

	// MaxAudioBytes caps the size of an uploaded clip. Zero selects the
	// default; requests above the cap are rejected before decoding.
	MaxAudioBytes int64 `yaml:"max_audio_bytes"`

	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig enables HTTPS when both files are set.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig declares the speech recognition and phonemization
// backends. ASR entries are ordered by preference; when more than one is
// configured the service fails over down the list.
type ProvidersConfig struct {
	ASR      []ProviderEntry `yaml:"asr"`
	Phoneme  ProviderEntry   `yaml:"phoneme"`
	Failover FailoverConfig  `yaml:"failover"`
}

// ProviderEntry configures a single backend by registry name. Which of the
// remaining fields matter depends on the provider; unused ones are ignored.
type ProviderEntry struct {
	Name           string         `yaml:"name"`
	APIKey         string         `yaml:"api_key"`
	BaseURL        string         `yaml:"base_url"`
	Model          string         `yaml:"model"`
	ModelPath      string         `yaml:"model_path"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	Options        map[string]any `yaml:"options"`
}

// Timeout returns the per-request timeout for this provider, or zero when
// none was configured.
func (e ProviderEntry) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// FailoverConfig tunes the circuit breakers guarding each ASR entry. Zero
// values select the breaker defaults.
type FailoverConfig struct {
	MaxFailures     int `yaml:"max_failures"`
	CooldownSeconds int `yaml:"cooldown_seconds"`
	ProbeBudget     int `yaml:"probe_budget"`
}

// Cooldown returns the configured breaker cooldown, or zero when unset.
func (f FailoverConfig) Cooldown() time.Duration {
	return time.Duration(f.CooldownSeconds) * time.Second
}

// ScoringConfig tunes the alignment costs, category thresholds and the
// recognition deadline. All of it can change on a live process via the
// config watcher.
type ScoringConfig struct {
	// GoodThreshold and OKThreshold split word accuracies into the three
	// feedback categories. Both are percentages in [0, 100] and OK must
	// not exceed Good.
	GoodThreshold float64 `yaml:"good_threshold"`
	OKThreshold   float64 `yaml:"ok_threshold"`

	// InsertionCost and DeletionCost weigh the edit operations during
	// alignment. Substitutions always cost 1.
	InsertionCost float64 `yaml:"insertion_cost"`
	DeletionCost  float64 `yaml:"deletion_cost"`

	// ASRTimeoutSeconds bounds how long a scoring request waits for the
	// recognizer before degrading to an all-deletions result.
	ASRTimeoutSeconds int `yaml:"asr_timeout_seconds"`
}

// ASRTimeout returns the recognition deadline as a duration.
func (s ScoringConfig) ASRTimeout() time.Duration {
	return time.Duration(s.ASRTimeoutSeconds) * time.Second
}

// CacheConfig selects the phonemization cache backend. With no redis_url
// the service keeps an in-process cache.
type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`

	// TTLHours bounds how long redis keeps an entry. Zero selects the
	// backend default. Ignored by the in-process cache.
	TTLHours int `yaml:"ttl_hours"`

	// MaxEntries bounds the in-process cache. Zero means unbounded.
	// Ignored when redis is configured.
	MaxEntries int `yaml:"max_entries"`
}

// TTL returns the redis entry lifetime, or zero when unset.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// HistoryConfig selects where scored attempts are stored. Leaving the
// backend empty disables attempt history; the listing endpoint then
// returns empty results rather than errors.
type HistoryConfig struct {
	Backend     HistoryBackend `yaml:"backend"`
	PostgresDSN string         `yaml:"postgres_dsn"`
}

// Default values applied by the loader when the file leaves a field unset.
const (
	DefaultListenAddr    = ":8080"
	DefaultMaxAudioBytes = 10 << 20

	DefaultGoodThreshold     = 80.0
	DefaultOKThreshold       = 60.0
	DefaultInsertionCost     = 1.0
	DefaultDeletionCost      = 1.0
	DefaultASRTimeoutSeconds = 30

	DefaultPhonemeProvider = "goruut"
)

// DefaultLanguages is the language set served when the file names none.
func DefaultLanguages() []string {
	return []string{"en", "de", "fr"}
}

// Default returns a config populated with every default value. It is what
// loading an empty document yields before validation.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogLevelInfo
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = LogFormatText
	}
	if c.Server.MaxAudioBytes == 0 {
		c.Server.MaxAudioBytes = DefaultMaxAudioBytes
	}
	if c.Providers.Phoneme.Name == "" {
		c.Providers.Phoneme.Name = DefaultPhonemeProvider
	}
	if c.Scoring.GoodThreshold == 0 {
		c.Scoring.GoodThreshold = DefaultGoodThreshold
	}
	if c.Scoring.OKThreshold == 0 {
		c.Scoring.OKThreshold = DefaultOKThreshold
	}
	if c.Scoring.InsertionCost == 0 {
		c.Scoring.InsertionCost = DefaultInsertionCost
	}
	if c.Scoring.DeletionCost == 0 {
		c.Scoring.DeletionCost = DefaultDeletionCost
	}
	if c.Scoring.ASRTimeoutSeconds == 0 {
		c.Scoring.ASRTimeoutSeconds = DefaultASRTimeoutSeconds
	}
	if len(c.Languages) == 0 {
		c.Languages = DefaultLanguages()
	}
}
