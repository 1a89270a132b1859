package config

import (
	"reflect"
	"slices"
)

// Changes describes what differs between two configs, split into what a
// running process can apply immediately and what needs a restart. Scoring
// parameters and the log level are hot; everything that feeds into
// connection setup or provider construction is not.
type Changes struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ScoringChanged bool

	// RestartNeeded lists the config sections that changed but can only
	// take effect on the next start. Empty when everything was applied.
	RestartNeeded []string
}

// Any reports whether the two configs differ at all.
func (c Changes) Any() bool {
	return c.LogLevelChanged || c.ScoringChanged || len(c.RestartNeeded) > 0
}

// Diff compares two configs and classifies every difference.
func Diff(old, new *Config) Changes {
	var c Changes

	if old.Server.LogLevel != new.Server.LogLevel {
		c.LogLevelChanged = true
		c.NewLogLevel = new.Server.LogLevel
	}
	if old.Scoring != new.Scoring {
		c.ScoringChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		c.RestartNeeded = append(c.RestartNeeded, "server.listen_addr")
	}
	if old.Server.LogFormat != new.Server.LogFormat {
		c.RestartNeeded = append(c.RestartNeeded, "server.log_format")
	}
	if old.Server.MaxAudioBytes != new.Server.MaxAudioBytes {
		c.RestartNeeded = append(c.RestartNeeded, "server.max_audio_bytes")
	}
	if !tlsEqual(old.Server.TLS, new.Server.TLS) {
		c.RestartNeeded = append(c.RestartNeeded, "server.tls")
	}
	// ProviderEntry carries an options map, so plain equality is out.
	if !reflect.DeepEqual(old.Providers, new.Providers) {
		c.RestartNeeded = append(c.RestartNeeded, "providers")
	}
	if !slices.Equal(old.Languages, new.Languages) {
		c.RestartNeeded = append(c.RestartNeeded, "languages")
	}
	if old.Cache != new.Cache {
		c.RestartNeeded = append(c.RestartNeeded, "cache")
	}
	if old.History != new.History {
		c.RestartNeeded = append(c.RestartNeeded, "history")
	}

	return c
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
