package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/accentor/internal/history"
	"github.com/MrWong99/accentor/internal/observe"
	"github.com/MrWong99/accentor/internal/trainer"
	"github.com/MrWong99/accentor/pkg/audio"
	phonememock "github.com/MrWong99/accentor/pkg/phoneme/mock"
	"github.com/MrWong99/accentor/pkg/provider/asr"
	asrmock "github.com/MrWong99/accentor/pkg/provider/asr/mock"
)

// testWAV returns a small valid WAV payload and its base64 encoding.
func testWAV(t *testing.T) ([]byte, string) {
	t.Helper()
	clip := audio.Clip{
		Rate:    audio.SampleRate,
		Samples: make([]int16, audio.SampleRate/10),
	}
	data, err := audio.EncodeWAV(clip)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return data, base64.StdEncoding.EncodeToString(data)
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// newTestMux wires a Handler around mock providers. The phoneme mock echoes
// text, so identical reference and transcript words score 100.
func newTestMux(t *testing.T, recognizer *asrmock.Provider, store history.Store) *http.ServeMux {
	t.Helper()
	cache := trainer.NewCache(func(_ context.Context, lang string) (*trainer.Trainer, error) {
		return trainer.New(lang,
			trainer.WithASR(recognizer),
			trainer.WithTranscriber(&phonememock.Transcriber{}),
		)
	})
	h := New(Config{
		Trainers:  cache,
		Languages: []string{"en", "de"},
		History:   store,
		Metrics:   testMetrics(t),
	})
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeScore(t *testing.T, rec *httptest.ResponseRecorder) scoreResponse {
	t.Helper()
	var resp scoreResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestScoreJSONPerfectAttempt(t *testing.T) {
	t.Parallel()
	_, b64 := testWAV(t)
	recognizer := &asrmock.Provider{
		Result: &asr.Transcription{
			Text: "hello world",
			Words: []asr.Word{
				{Text: "hello", Start: 0.1, End: 0.5},
				{Text: "world", Start: 0.6, End: 1.0},
			},
		},
	}
	mux := newTestMux(t, recognizer, nil)

	rec := postJSON(t, mux, scoreRequest{Title: "Hello world", Base64Audio: b64, Language: "en"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	resp := decodeScore(t, rec)

	if resp.PronunciationAccuracy != "100" {
		t.Errorf("pronunciation_accuracy = %q, want %q", resp.PronunciationAccuracy, "100")
	}
	if resp.RealTranscript != "hello world" {
		t.Errorf("real_transcript = %q, want %q", resp.RealTranscript, "hello world")
	}
	if resp.RealTranscripts != "Hello world" {
		t.Errorf("real_transcripts = %q, want %q", resp.RealTranscripts, "Hello world")
	}
	if resp.MatchedTranscripts != "hello world" {
		t.Errorf("matched_transcripts = %q, want %q", resp.MatchedTranscripts, "hello world")
	}
	if resp.PairAccuracyCategory != "0 0" {
		t.Errorf("pair_accuracy_category = %q, want %q", resp.PairAccuracyCategory, "0 0")
	}
	if resp.IsLetterCorrectAllWords != "11111 11111 " {
		t.Errorf("is_letter_correct_all_words = %q", resp.IsLetterCorrectAllWords)
	}
	if resp.StartTime != "0.10 0.60" {
		t.Errorf("start_time = %q, want %q", resp.StartTime, "0.10 0.60")
	}
	if resp.EndTime != "0.50 1.00" {
		t.Errorf("end_time = %q, want %q", resp.EndTime, "0.50 1.00")
	}
}

func TestScoreMultipart(t *testing.T) {
	t.Parallel()
	wav, _ := testWAV(t)
	recognizer := &asrmock.Provider{Result: &asr.Transcription{Text: "hello"}}
	mux := newTestMux(t, recognizer, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("title", "hello"); err != nil {
		t.Fatalf("write title: %v", err)
	}
	if err := mw.WriteField("language", "en"); err != nil {
		t.Fatalf("write language: %v", err)
	}
	fw, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := fw.Write(wav); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/score", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	if resp := decodeScore(t, rec); resp.PronunciationAccuracy != "100" {
		t.Errorf("pronunciation_accuracy = %q, want %q", resp.PronunciationAccuracy, "100")
	}
}

func TestScoreDataURIPrefix(t *testing.T) {
	t.Parallel()
	_, b64 := testWAV(t)
	recognizer := &asrmock.Provider{Result: &asr.Transcription{Text: "hello"}}
	mux := newTestMux(t, recognizer, nil)

	rec := postJSON(t, mux, scoreRequest{
		Title:       "hello",
		Base64Audio: "data:audio/wav;base64," + b64,
		Language:    "en",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
}

func TestScoreRejectsBadRequests(t *testing.T) {
	t.Parallel()
	_, b64 := testWAV(t)

	tests := []struct {
		name       string
		req        scoreRequest
		wantStatus int
	}{
		{
			name:       "invalid base64",
			req:        scoreRequest{Title: "hello", Base64Audio: "no$t base64!", Language: "en"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty audio",
			req:        scoreRequest{Title: "hello", Language: "en"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "audio is not a clip",
			req:        scoreRequest{Title: "hello", Base64Audio: base64.StdEncoding.EncodeToString([]byte("gibberish")), Language: "en"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty title",
			req:        scoreRequest{Title: "  ", Base64Audio: b64, Language: "en"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown language",
			req:        scoreRequest{Title: "hello", Base64Audio: b64, Language: "xx"},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			recognizer := &asrmock.Provider{Result: &asr.Transcription{Text: "hello"}}
			mux := newTestMux(t, recognizer, nil)
			rec := postJSON(t, mux, tt.req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestScoreProviderFailureIs503(t *testing.T) {
	t.Parallel()
	_, b64 := testWAV(t)
	recognizer := &asrmock.Provider{Err: asr.ErrAuthFailed}
	mux := newTestMux(t, recognizer, nil)

	rec := postJSON(t, mux, scoreRequest{Title: "hello", Base64Audio: b64, Language: "en"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503; body: %s", rec.Code, rec.Body)
	}
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(resp.Error, "transcription unavailable") {
		t.Errorf("error = %q, want a transcription unavailable message", resp.Error)
	}
}

func TestScoreEmptyTranscriptDegrades(t *testing.T) {
	t.Parallel()
	_, b64 := testWAV(t)
	recognizer := &asrmock.Provider{Result: &asr.Transcription{Text: ""}}
	mux := newTestMux(t, recognizer, nil)

	rec := postJSON(t, mux, scoreRequest{Title: "hello world", Base64Audio: b64, Language: "en"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	resp := decodeScore(t, rec)
	if resp.PronunciationAccuracy != "0" {
		t.Errorf("pronunciation_accuracy = %q, want %q", resp.PronunciationAccuracy, "0")
	}
	if resp.MatchedTranscripts != "- -" {
		t.Errorf("matched_transcripts = %q, want %q", resp.MatchedTranscripts, "- -")
	}
	if resp.PairAccuracyCategory != "2 2" {
		t.Errorf("pair_accuracy_category = %q, want %q", resp.PairAccuracyCategory, "2 2")
	}
	if resp.StartTime != "-1 -1" {
		t.Errorf("start_time = %q, want %q", resp.StartTime, "-1 -1")
	}
}

func TestScoreRecordsHistory(t *testing.T) {
	t.Parallel()
	_, b64 := testWAV(t)
	store := history.NewMemory()
	recognizer := &asrmock.Provider{Result: &asr.Transcription{Text: "hello"}}
	mux := newTestMux(t, recognizer, store)

	rec := postJSON(t, mux, scoreRequest{Title: "hello", Base64Audio: b64, Language: "en"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	if store.Len() != 1 {
		t.Fatalf("history entries = %d, want 1", store.Len())
	}
	attempts, err := store.Recent(context.Background(), history.Filter{})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if attempts[0].Language != "en" || attempts[0].Reference != "hello" {
		t.Errorf("recorded attempt = %+v", attempts[0])
	}
}

func TestAttemptsListing(t *testing.T) {
	t.Parallel()
	store := history.NewMemory()
	recognizer := &asrmock.Provider{}
	mux := newTestMux(t, recognizer, store)

	for i, lang := range []string{"en", "de", "en"} {
		if err := store.Save(context.Background(), history.Attempt{
			ID:       lang + "-" + strconv.Itoa(i),
			Language: lang,
		}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts?language=en&limit=1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}

	var resp attemptsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(resp.Attempts))
	}
	if resp.Attempts[0].Language != "en" {
		t.Errorf("language = %q, want %q", resp.Attempts[0].Language, "en")
	}
}

func TestAttemptsWithoutStoreIsEmpty(t *testing.T) {
	t.Parallel()
	mux := newTestMux(t, &asrmock.Provider{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	var resp attemptsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Attempts) != 0 {
		t.Errorf("attempts = %d, want 0", len(resp.Attempts))
	}
}

func TestAttemptsRejectsBadLimit(t *testing.T) {
	t.Parallel()
	mux := newTestMux(t, &asrmock.Provider{}, history.NewMemory())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts?limit=abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body)
	}
}

func TestDecodeBase64Audio(t *testing.T) {
	t.Parallel()
	want := []byte("pcm-bytes")
	padded := base64.StdEncoding.EncodeToString(want)

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "plain", in: padded},
		{name: "data uri", in: "data:audio/ogg;base64," + padded},
		{name: "unpadded", in: strings.TrimRight(padded, "=")},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "!!!", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := decodeBase64Audio(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("want error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeBase64Audio: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Errorf("decoded = %q, want %q", got, want)
			}
		})
	}
}
