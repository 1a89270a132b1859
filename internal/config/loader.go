package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the registry names shipped with the service,
// keyed by provider kind. Unknown names only produce a warning during
// validation so that externally registered providers keep working.
var ValidProviderNames = map[string][]string{
	"asr":     {"whisper-api", "openai", "native", "mock"},
	"phoneme": {"goruut", "mock"},
}

// envPattern matches ${VAR} references in the raw file. The unbraced $VAR
// form is left alone so values containing a literal dollar sign survive.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, expands and validates the YAML file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes a config document from r. Environment references
// of the form ${VAR} are replaced before decoding, unknown YAML keys are
// rejected, defaults are applied and the result is validated.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	data = expandEnv(data)

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		// An empty document decodes to io.EOF; that is a valid file
		// that simply sets nothing.
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := string(m[2 : len(m)-1])
		return []byte(os.Getenv(name))
	})
}

// Validate checks the config for hard errors and logs warnings for the
// soft ones. All hard errors are collected and joined so a broken file is
// reported in one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr must not be empty"))
	}
	if !c.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is not one of debug, info, warn, error", c.Server.LogLevel))
	}
	if !c.Server.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is not one of text, json", c.Server.LogFormat))
	}
	if c.Server.MaxAudioBytes < 0 {
		errs = append(errs, errors.New("server.max_audio_bytes must not be negative"))
	}
	if tls := c.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.validateScoring()...)
	errs = append(errs, c.validateLanguages()...)

	if c.Cache.TTLHours < 0 {
		errs = append(errs, errors.New("cache.ttl_hours must not be negative"))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.max_entries must not be negative"))
	}

	if !c.History.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("history.backend %q is not one of memory, postgres (or empty to disable)", c.History.Backend))
	}
	if c.History.Backend == HistoryPostgres && c.History.PostgresDSN == "" {
		errs = append(errs, errors.New("history.backend postgres requires history.postgres_dsn"))
	}

	return errors.Join(errs...)
}

func (c *Config) validateProviders() []error {
	var errs []error

	if len(c.Providers.ASR) == 0 {
		errs = append(errs, errors.New("providers.asr must list at least one provider"))
	}
	seen := make(map[string]bool, len(c.Providers.ASR))
	for i, entry := range c.Providers.ASR {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.asr[%d] has no name", i))
			continue
		}
		if seen[entry.Name] {
			errs = append(errs, fmt.Errorf("providers.asr lists %q twice", entry.Name))
		}
		seen[entry.Name] = true
		if entry.TimeoutSeconds < 0 {
			errs = append(errs, fmt.Errorf("providers.asr[%d].timeout_seconds must not be negative", i))
		}
		warnUnknownProvider("asr", entry.Name)
	}

	if c.Providers.Phoneme.Name == "" {
		errs = append(errs, errors.New("providers.phoneme.name must not be empty"))
	} else {
		warnUnknownProvider("phoneme", c.Providers.Phoneme.Name)
	}

	if f := c.Providers.Failover; f.MaxFailures < 0 || f.CooldownSeconds < 0 || f.ProbeBudget < 0 {
		errs = append(errs, errors.New("providers.failover values must not be negative"))
	}

	return errs
}

func (c *Config) validateScoring() []error {
	var errs []error
	s := c.Scoring

	if s.GoodThreshold < 0 || s.GoodThreshold > 100 {
		errs = append(errs, fmt.Errorf("scoring.good_threshold %.1f is outside [0, 100]", s.GoodThreshold))
	}
	if s.OKThreshold < 0 || s.OKThreshold > 100 {
		errs = append(errs, fmt.Errorf("scoring.ok_threshold %.1f is outside [0, 100]", s.OKThreshold))
	}
	if s.OKThreshold > s.GoodThreshold {
		errs = append(errs, fmt.Errorf("scoring.ok_threshold %.1f exceeds good_threshold %.1f", s.OKThreshold, s.GoodThreshold))
	}
	if s.InsertionCost <= 0 {
		errs = append(errs, errors.New("scoring.insertion_cost must be positive"))
	}
	if s.DeletionCost <= 0 {
		errs = append(errs, errors.New("scoring.deletion_cost must be positive"))
	}
	if s.ASRTimeoutSeconds < 0 {
		errs = append(errs, errors.New("scoring.asr_timeout_seconds must not be negative"))
	}

	return errs
}

func (c *Config) validateLanguages() []error {
	var errs []error

	seen := make(map[string]bool, len(c.Languages))
	for i, lang := range c.Languages {
		if strings.TrimSpace(lang) == "" {
			errs = append(errs, fmt.Errorf("languages[%d] is blank", i))
			continue
		}
		if lang != strings.ToLower(lang) {
			errs = append(errs, fmt.Errorf("languages[%d] %q must be lowercase", i, lang))
		}
		if seen[lang] {
			errs = append(errs, fmt.Errorf("languages lists %q twice", lang))
		}
		seen[lang] = true
	}

	return errs
}

func warnUnknownProvider(kind, name string) {
	if !slices.Contains(ValidProviderNames[kind], name) {
		slog.Warn("config: provider name not shipped with this build, expecting external registration",
			"kind", kind, "name", name)
	}
}
