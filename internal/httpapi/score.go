package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/accentor/internal/history"
	"github.com/MrWong99/accentor/internal/trainer"
	"github.com/MrWong99/accentor/pkg/audio"
	"github.com/MrWong99/accentor/pkg/phoneme"
	"github.com/MrWong99/accentor/pkg/provider/asr"
	"github.com/MrWong99/accentor/pkg/types"
)

// scoreRequest is the JSON body of POST /api/v1/score. The same endpoint
// also accepts multipart/form-data with fields title, language and a file
// part named audio.
type scoreRequest struct {
	// Title is the reference sentence the speaker attempted.
	Title string `json:"title"`

	// Base64Audio is the recorded clip, base64-encoded. A data URI prefix
	// ("data:audio/wav;base64,") is accepted and stripped.
	Base64Audio string `json:"base64Audio"`

	// Language is the ISO 639-1 code to score against.
	Language string `json:"language"`
}

// scoreResponse keeps the original trainer service's field names.
type scoreResponse struct {
	RealTranscript          string `json:"real_transcript"`
	IPATranscript           string `json:"ipa_transcript"`
	PronunciationAccuracy   string `json:"pronunciation_accuracy"`
	RealTranscripts         string `json:"real_transcripts"`
	RealTranscriptsIPA      string `json:"real_transcripts_ipa"`
	MatchedTranscripts      string `json:"matched_transcripts"`
	IsLetterCorrectAllWords string `json:"is_letter_correct_all_words"`
	PairAccuracyCategory    string `json:"pair_accuracy_category"`
	StartTime               string `json:"start_time"`
	EndTime                 string `json:"end_time"`
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	title, language, payload, err := parseScoreRequest(r)
	if err != nil {
		h.reject(r.Context(), w, language, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := h.languages[language]; !ok {
		h.reject(r.Context(), w, language, http.StatusUnprocessableEntity,
			fmt.Sprintf("language %q is not enabled", language))
		return
	}

	clip, err := audio.Decode(payload)
	if err != nil {
		h.reject(r.Context(), w, language, http.StatusBadRequest, "cannot decode audio: "+err.Error())
		return
	}

	tr, err := h.trainers.GetOrCreate(r.Context(), language)
	if err != nil {
		h.fail(r.Context(), w, language, err)
		return
	}
	result, err := tr.Evaluate(r.Context(), title, clip)
	if err != nil {
		h.fail(r.Context(), w, language, err)
		return
	}

	if h.history != nil {
		if err := h.history.Save(r.Context(), history.New(language, result)); err != nil {
			h.log.WarnContext(r.Context(), "recording attempt failed", "error", err)
		}
	}

	h.metrics.ScoreDuration.Record(r.Context(), time.Since(started).Seconds())
	h.metrics.RecordScoreRequest(r.Context(), language, "ok")
	h.log.LogAttrs(r.Context(), slog.LevelInfo, "attempt scored",
		slog.String("language", language),
		slog.Float64("accuracy", result.Accuracy),
		slog.Int("words", len(result.Words)),
	)
	writeJSON(w, http.StatusOK, renderResult(result))
}

// reject answers a caller error and counts it under the given status class.
func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, language string, status int, msg string) {
	if language == "" {
		language = "unknown"
	}
	h.metrics.RecordScoreRequest(ctx, language, "rejected")
	writeError(w, status, msg)
}

// fail maps a pipeline error to its HTTP status. Caller mistakes are 4xx,
// provider failures are 503 so load balancers treat them as transient.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, language string, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		// The client hung up; there is nobody left to answer.
		h.metrics.RecordScoreRequest(ctx, language, "canceled")
		return
	case errors.Is(err, trainer.ErrEmptyReference):
		h.reject(ctx, w, language, http.StatusBadRequest, "title must contain at least one word")
	case errors.Is(err, phoneme.ErrLanguageUnsupported), errors.Is(err, asr.ErrLanguageUnsupported):
		h.reject(ctx, w, language, http.StatusUnprocessableEntity, err.Error())
	default:
		h.metrics.RecordScoreRequest(ctx, language, "provider_error")
		h.log.ErrorContext(ctx, "scoring failed", "language", language, "error", err)
		writeError(w, http.StatusServiceUnavailable, "transcription unavailable: "+err.Error())
	}
}

// parseScoreRequest extracts the reference sentence, the language code and
// the raw audio bytes from either encoding of the request.
func parseScoreRequest(r *http.Request) (title, language string, payload []byte, err error) {
	ct := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(ct)

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return "", "", nil, fmt.Errorf("cannot parse multipart form: %w", err)
		}
		title = r.FormValue("title")
		language = r.FormValue("language")
		f, _, ferr := r.FormFile("audio")
		if ferr != nil {
			return title, language, nil, errors.New("multipart request is missing the audio file part")
		}
		defer f.Close()
		payload, err = io.ReadAll(f)
		if err != nil {
			return title, language, nil, fmt.Errorf("cannot read audio part: %w", err)
		}
		return title, language, payload, nil
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", nil, fmt.Errorf("cannot decode request body: %w", err)
	}
	payload, err = decodeBase64Audio(req.Base64Audio)
	if err != nil {
		return req.Title, req.Language, nil, err
	}
	return req.Title, req.Language, payload, nil
}

// decodeBase64Audio decodes the base64Audio field, stripping an optional
// data URI header. Both padded and raw encodings are accepted because
// browser recorders disagree on padding.
func decodeBase64Audio(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	if s == "" {
		return nil, errors.New("base64Audio must not be empty")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	data, rawErr := base64.RawStdEncoding.DecodeString(s)
	if rawErr == nil {
		return data, nil
	}
	return nil, fmt.Errorf("base64Audio is not valid base64: %w", err)
}

// renderResult flattens a ScoringResult into the wire shape: parallel
// space-separated lists, one entry per reference word.
func renderResult(res *types.ScoringResult) scoreResponse {
	categories := make([]string, len(res.Words))
	startTimes := make([]string, len(res.Words))
	endTimes := make([]string, len(res.Words))
	var letters strings.Builder
	for i, w := range res.Words {
		categories[i] = strconv.Itoa(w.Category.Code())
		startTimes[i] = formatTime(w.StartTime)
		endTimes[i] = formatTime(w.EndTime)
		for _, ok := range w.LetterMarks {
			if ok {
				letters.WriteByte('1')
			} else {
				letters.WriteByte('0')
			}
		}
		letters.WriteByte(' ')
	}

	return scoreResponse{
		RealTranscript:          res.Transcript,
		IPATranscript:           res.TranscriptIPA,
		PronunciationAccuracy:   strconv.Itoa(int(math.Round(res.Accuracy))),
		RealTranscripts:         res.Reference,
		RealTranscriptsIPA:      res.ReferenceIPA,
		MatchedTranscripts:      strings.Join(res.MatchedTexts(), " "),
		IsLetterCorrectAllWords: letters.String(),
		PairAccuracyCategory:    strings.Join(categories, " "),
		StartTime:               strings.Join(startTimes, " "),
		EndTime:                 strings.Join(endTimes, " "),
	}
}

// formatTime renders a word timestamp with two decimals, or "-1" when the
// word carries no timing.
func formatTime(t float64) string {
	if t == types.NoTime {
		return "-1"
	}
	return strconv.FormatFloat(t, 'f', 2, 64)
}
