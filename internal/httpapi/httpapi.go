// Package httpapi exposes the scoring pipeline over HTTP.
//
// The API has two application endpoints: POST /api/v1/score runs one
// pronunciation attempt through the trainer and GET /api/v1/attempts lists
// recent scored attempts from the history store. Health probes and the
// Prometheus exposition endpoint are mounted next to them by internal/app.
//
// The score response keeps the field names of the original trainer service
// (real_transcript, pair_accuracy_category, …) so existing clients keep
// working; the space-separated fields are parallel arrays with one entry per
// reference word in sentence order.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MrWong99/accentor/internal/history"
	"github.com/MrWong99/accentor/internal/observe"
	"github.com/MrWong99/accentor/internal/trainer"
)

// DefaultMaxAudioBytes caps the request body when the config does not.
const DefaultMaxAudioBytes = 10 << 20

// Config carries the handler's collaborators and limits.
type Config struct {
	// Trainers hands out the per-language scoring pipeline. Required.
	Trainers *trainer.Cache

	// Languages is the set of language codes the service accepts. Requests
	// for other codes are rejected before any provider is consulted.
	Languages []string

	// History records scored attempts and serves the listing endpoint.
	// Nil disables persistence; the listing then returns an empty slice.
	History history.Store

	// MaxAudioBytes bounds the request body. Zero selects
	// DefaultMaxAudioBytes.
	MaxAudioBytes int64

	// Metrics receives request counters and latency. Nil falls back to the
	// process-wide default instruments.
	Metrics *observe.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler serves the scoring API. Safe for concurrent use; all fields are
// read-only after New.
type Handler struct {
	trainers  *trainer.Cache
	languages map[string]struct{}
	history   history.Store
	maxBytes  int64
	metrics   *observe.Metrics
	log       *slog.Logger
}

// New creates a Handler from cfg. cfg.Trainers must be non-nil.
func New(cfg Config) *Handler {
	langs := make(map[string]struct{}, len(cfg.Languages))
	for _, l := range cfg.Languages {
		langs[l] = struct{}{}
	}
	h := &Handler{
		trainers:  cfg.Trainers,
		languages: langs,
		history:   cfg.History,
		maxBytes:  cfg.MaxAudioBytes,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
	if h.maxBytes <= 0 {
		h.maxBytes = DefaultMaxAudioBytes
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	h.log = h.log.With("component", "httpapi")
	return h
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/score", h.handleScore)
	mux.HandleFunc("GET /api/v1/attempts", h.handleAttempts)
}

// attemptsResponse is the JSON body of the attempts listing.
type attemptsResponse struct {
	Attempts []attemptJSON `json:"attempts"`
}

// attemptJSON is one listed attempt. The per-word breakdown is omitted from
// the listing; clients re-score or fetch details elsewhere if they need it.
type attemptJSON struct {
	ID         string  `json:"id"`
	Language   string  `json:"language"`
	Reference  string  `json:"reference"`
	Transcript string  `json:"transcript"`
	Accuracy   float64 `json:"accuracy"`
	CreatedAt  string  `json:"created_at"`
}

func (h *Handler) handleAttempts(w http.ResponseWriter, r *http.Request) {
	resp := attemptsResponse{Attempts: []attemptJSON{}}
	if h.history == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	f := history.Filter{Language: r.URL.Query().Get("language")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	attempts, err := h.history.Recent(r.Context(), f)
	if err != nil {
		h.log.ErrorContext(r.Context(), "attempts listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing attempts failed")
		return
	}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, attemptJSON{
			ID:         a.ID,
			Language:   a.Language,
			Reference:  a.Reference,
			Transcript: a.Transcript,
			Accuracy:   a.Accuracy,
			CreatedAt:  a.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding response failed"}`, http.StatusInternalServerError)
	}
}
