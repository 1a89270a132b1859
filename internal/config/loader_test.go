package config

import (
	"strings"
	"testing"
)

// minimalYAML is the smallest file that passes validation.
const minimalYAML = `
providers:
  asr:
    - name: mock
`

func TestLoadFromReader_Minimal(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if got, want := cfg.Server.ListenAddr, DefaultListenAddr; got != want {
		t.Errorf("Server.ListenAddr = %q, want default %q", got, want)
	}
	if got, want := cfg.Providers.Phoneme.Name, DefaultPhonemeProvider; got != want {
		t.Errorf("Providers.Phoneme.Name = %q, want default %q", got, want)
	}
}

func TestLoadFromReader_EmptyDocumentFailsValidation(t *testing.T) {
	// An empty file parses fine but configures no recognizer, which the
	// service cannot run without.
	_, err := LoadFromReader(strings.NewReader(""))
	if err == nil {
		t.Fatal("LoadFromReader(empty) error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "providers.asr must list at least one provider") {
		t.Errorf("error = %q, want mention of missing asr provider", err)
	}
}

func TestLoadFromReader_UnknownKeyRejected(t *testing.T) {
	const doc = minimalYAML + `
scorring:
  good_threshold: 90
`
	_, err := LoadFromReader(strings.NewReader(doc))
	if err == nil {
		t.Fatal("LoadFromReader() error = nil, want parse error for unknown key")
	}
	if !strings.Contains(err.Error(), "scorring") {
		t.Errorf("error = %q, want mention of the unknown key", err)
	}
}

func TestLoadFromReader_EnvExpansion(t *testing.T) {
	t.Setenv("ACCENTOR_TEST_KEY", "sk-from-env")
	const doc = `
providers:
  asr:
    - name: whisper-api
      api_key: ${ACCENTOR_TEST_KEY}
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if got, want := cfg.Providers.ASR[0].APIKey, "sk-from-env"; got != want {
		t.Errorf("APIKey = %q, want %q", got, want)
	}
}

func TestLoadFromReader_EnvExpansionUnsetAndLiteralDollar(t *testing.T) {
	const doc = `
providers:
  asr:
    - name: whisper-api
      api_key: ${ACCENTOR_TEST_UNSET_KEY}
      base_url: https://example.com/$path
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if got := cfg.Providers.ASR[0].APIKey; got != "" {
		t.Errorf("APIKey = %q, want empty for unset variable", got)
	}
	if got, want := cfg.Providers.ASR[0].BaseURL, "https://example.com/$path"; got != want {
		t.Errorf("BaseURL = %q, want unbraced dollar untouched %q", got, want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/accentor.yaml")
	if err == nil {
		t.Fatal("Load() error = nil, want open error")
	}
	if !strings.Contains(err.Error(), "config: open") {
		t.Errorf("error = %q, want config open wrapping", err)
	}
}

// ─── validation ──────────────────────────────────────────────────────────────

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "unnamed asr entry",
			doc: `
providers:
  asr:
    - model: whisper-1
`,
			wantErr: "providers.asr[0] has no name",
		},
		{
			name: "duplicate asr entry",
			doc: `
providers:
  asr:
    - name: mock
    - name: mock
`,
			wantErr: `providers.asr lists "mock" twice`,
		},
		{
			name: "negative provider timeout",
			doc: `
providers:
  asr:
    - name: mock
      timeout_seconds: -1
`,
			wantErr: "timeout_seconds must not be negative",
		},
		{
			name: "log level",
			doc: minimalYAML + `
server:
  log_level: loud
`,
			wantErr: `server.log_level "loud"`,
		},
		{
			name: "log format",
			doc: minimalYAML + `
server:
  log_format: xml
`,
			wantErr: `server.log_format "xml"`,
		},
		{
			name: "incomplete tls",
			doc: minimalYAML + `
server:
  tls:
    cert_file: /etc/accentor/tls.crt
`,
			wantErr: "server.tls requires both cert_file and key_file",
		},
		{
			name: "ok above good",
			doc: minimalYAML + `
scoring:
  good_threshold: 50
  ok_threshold: 70
`,
			wantErr: "scoring.ok_threshold 70.0 exceeds good_threshold 50.0",
		},
		{
			name: "threshold out of range",
			doc: minimalYAML + `
scoring:
  good_threshold: 140
`,
			wantErr: "scoring.good_threshold 140.0 is outside [0, 100]",
		},
		{
			name: "negative insertion cost",
			doc: minimalYAML + `
scoring:
  insertion_cost: -0.5
`,
			wantErr: "scoring.insertion_cost must be positive",
		},
		{
			name: "blank language",
			doc: minimalYAML + `
languages: ["en", "  "]
`,
			wantErr: "languages[1] is blank",
		},
		{
			name: "uppercase language",
			doc: minimalYAML + `
languages: ["EN"]
`,
			wantErr: `languages[0] "EN" must be lowercase`,
		},
		{
			name: "duplicate language",
			doc: minimalYAML + `
languages: ["en", "de", "en"]
`,
			wantErr: `languages lists "en" twice`,
		},
		{
			name: "unknown history backend",
			doc: minimalYAML + `
history:
  backend: sqlite
`,
			wantErr: `history.backend "sqlite"`,
		},
		{
			name: "postgres without dsn",
			doc: minimalYAML + `
history:
  backend: postgres
`,
			wantErr: "history.backend postgres requires history.postgres_dsn",
		},
		{
			name: "negative cache ttl",
			doc: minimalYAML + `
cache:
  ttl_hours: -1
`,
			wantErr: "cache.ttl_hours must not be negative",
		},
		{
			name: "negative failover",
			doc: `
providers:
  asr:
    - name: mock
  failover:
    max_failures: -1
`,
			wantErr: "providers.failover values must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromReader(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatalf("LoadFromReader() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	const doc = `
server:
  log_level: loud
providers:
  asr:
    - name: mock
languages: ["EN", "EN"]
`
	_, err := LoadFromReader(strings.NewReader(doc))
	if err == nil {
		t.Fatal("LoadFromReader() error = nil, want joined errors")
	}
	for _, want := range []string{"server.log_level", "must be lowercase", "lists \"EN\" twice"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %q, want it to contain %q", err, want)
		}
	}
}
