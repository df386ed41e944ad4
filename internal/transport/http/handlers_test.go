package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconv "tunegrab/internal/application/conversion"
	conversiondomain "tunegrab/internal/domain/conversion"
	"tunegrab/internal/infrastructure/filesystem"
)

type stubUseCases struct {
	submitResult appconv.SubmitResult
	submitErr    error
	view         appconv.JobView
	statusErr    error

	lastURL  string
	lastOpts conversiondomain.Options
}

func (s *stubUseCases) Submit(_ context.Context, sourceURL string, opts conversiondomain.Options) (appconv.SubmitResult, error) {
	s.lastURL = sourceURL
	s.lastOpts = opts
	if s.submitErr != nil {
		return appconv.SubmitResult{}, s.submitErr
	}
	return s.submitResult, nil
}

func (s *stubUseCases) Status(_ string) (appconv.JobView, error) {
	if s.statusErr != nil {
		return appconv.JobView{}, s.statusErr
	}
	return s.view, nil
}

func newTestEnv(t *testing.T, uc *stubUseCases, maxFileSize int64) (*Handler, *filesystem.Store) {
	t.Helper()
	store := filesystem.NewStore(t.TempDir())
	require.NoError(t, store.EnsureDirs())
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewHandler(uc, store, maxFileSize, "/usr/bin/ffmpeg", true, logger), store
}

func newTestRouter(t *testing.T, handler *Handler) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	limiter := NewRateLimiter(1000, time.Minute)
	return NewRouter(handler, limiter, limiter, logger)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestConvertReturnsJobHandleImmediately(t *testing.T) {
	uc := &stubUseCases{submitResult: appconv.SubmitResult{
		JobID:        "conv_1_abcd1234",
		Title:        "My Song",
		ArtifactName: "My_Song-1.mp3",
	}}
	handler, _ := newTestEnv(t, uc, 100<<20)
	router := newTestRouter(t, handler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/convert", strings.NewReader(
		`{"url":"https://youtu.be/abc","audioFormat":"flac","audioQuality":"2"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "conv_1_abcd1234", body["jobId"])
	assert.Equal(t, "My Song", body["title"])
	assert.Equal(t, "My_Song-1.mp3", body["fileName"])

	assert.Equal(t, "https://youtu.be/abc", uc.lastURL)
	assert.Equal(t, "flac", uc.lastOpts.AudioFormat)
	assert.Equal(t, "2", uc.lastOpts.AudioQuality)
}

func TestConvertRejectsMalformedBody(t *testing.T) {
	handler, _ := newTestEnv(t, &stubUseCases{}, 100<<20)
	router := newTestRouter(t, handler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/convert", strings.NewReader("{not json"))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(conversiondomain.KindValidation), body["code"])
}

func TestConvertSurfacesValidationError(t *testing.T) {
	uc := &stubUseCases{submitErr: conversiondomain.NewValidationError("invalid source URL")}
	handler, _ := newTestEnv(t, uc, 100<<20)
	router := newTestRouter(t, handler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/convert", strings.NewReader(`{"url":"https://example.com"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "invalid source URL", body["error"])
}

func TestStatusCompletedIncludesDownloadURL(t *testing.T) {
	uc := &stubUseCases{view: appconv.JobView{
		JobID:        "conv_1_abcd1234",
		Status:       conversiondomain.StatusCompleted,
		Progress:     100,
		ArtifactName: "song.mp3",
		ArtifactSize: 4096,
	}}
	handler, _ := newTestEnv(t, uc, 100<<20)
	router := newTestRouter(t, handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/status/conv_1_abcd1234", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, float64(100), body["progress"])
	assert.Equal(t, "/download/song.mp3", body["downloadUrl"])
}

func TestStatusFailedIncludesClassifiedError(t *testing.T) {
	uc := &stubUseCases{view: appconv.JobView{
		JobID:  "conv_1_abcd1234",
		Status: conversiondomain.StatusFailed,
		Err: conversiondomain.NewConversionError(
			conversiondomain.ReasonPrivateVideo, "this video is private and cannot be downloaded", ""),
	}}
	handler, _ := newTestEnv(t, uc, 100<<20)
	router := newTestRouter(t, handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/status/conv_1_abcd1234", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, string(conversiondomain.KindConversion), body["code"])
	assert.Equal(t, conversiondomain.ReasonPrivateVideo, body["reason"])
}

func TestStatusUnknownJob(t *testing.T) {
	uc := &stubUseCases{statusErr: conversiondomain.NewNotFoundError("conversion")}
	handler, _ := newTestEnv(t, uc, 100<<20)
	router := newTestRouter(t, handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/status/conv_missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadIsSingleDelivery(t *testing.T) {
	handler, store := newTestEnv(t, &stubUseCases{}, 100<<20)
	router := newTestRouter(t, handler)

	payload := []byte("audio-bytes-payload")
	require.NoError(t, os.WriteFile(filepath.Join(store.TempDir, "song.mp3"), payload, 0o644))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/download/song.mp3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="song.mp3"`)
	assert.Equal(t, payload, rec.Body.Bytes(), "stream must carry the exact recorded bytes")

	// The artifact is deleted after the first successful delivery.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/download/song.mp3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadRejectsOversizedArtifact(t *testing.T) {
	const maxSize = 64
	handler, store := newTestEnv(t, &stubUseCases{}, maxSize)
	router := newTestRouter(t, handler)

	full := filepath.Join(store.TempDir, "big.mp3")
	require.NoError(t, os.WriteFile(full, make([]byte, maxSize+1), 0o644))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/download/big.mp3", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, string(conversiondomain.KindFileSize), body["code"])
}

func TestDownloadAcceptsArtifactAtExactCeiling(t *testing.T) {
	const maxSize = 64
	handler, store := newTestEnv(t, &stubUseCases{}, maxSize)
	router := newTestRouter(t, handler)

	require.NoError(t, os.WriteFile(filepath.Join(store.TempDir, "edge.mp3"), make([]byte, maxSize), 0o644))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/download/edge.mp3", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Body.Bytes(), maxSize)
}

func TestDownloadUnknownArtifact(t *testing.T) {
	handler, _ := newTestEnv(t, &stubUseCases{}, 100<<20)
	router := newTestRouter(t, handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/download/ghost.mp3", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	handler, _ := newTestEnv(t, &stubUseCases{}, 100<<20)
	router := newTestRouter(t, handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "available", body["ffmpeg"])
	assert.Equal(t, "/usr/bin/ffmpeg", body["ffmpegPath"])
}

func TestRateLimiterRejectsOverQuota(t *testing.T) {
	uc := &stubUseCases{submitResult: appconv.SubmitResult{JobID: "conv_1_a"}}
	handler, _ := newTestEnv(t, uc, 100<<20)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	router := NewRouter(handler, NewRateLimiter(2, time.Minute), NewRateLimiter(1000, time.Minute), logger)

	payload := `{"url":"https://youtu.be/abc"}`
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/convert", strings.NewReader(payload))
		req.RemoteAddr = "10.0.0.1:12345"
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d within quota", i)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/convert", strings.NewReader(payload))
	req.RemoteAddr = "10.0.0.1:12345"
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	body := decodeBody(t, rec)
	assert.Equal(t, string(conversiondomain.KindRateLimit), body["code"])

	// A different client is unaffected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/convert", strings.NewReader(payload))
	req.RemoteAddr = "10.0.0.2:12345"
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
