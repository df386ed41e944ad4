package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	appconv "tunegrab/internal/application/conversion"
	conversiondomain "tunegrab/internal/domain/conversion"
)

type conversionUseCases interface {
	Submit(ctx context.Context, sourceURL string, opts conversiondomain.Options) (appconv.SubmitResult, error)
	Status(jobID string) (appconv.JobView, error)
}

type artifactStore interface {
	Open(name string) (*os.File, os.FileInfo, error)
	Remove(name string) error
}

type Handler struct {
	conversions conversionUseCases
	store       artifactStore
	maxFileSize int64
	ffmpegPath  string
	ffmpegOK    bool
	logger      *logrus.Logger
	startedAt   time.Time
}

// NewHandler wires HTTP handlers with application use cases.
func NewHandler(conversions conversionUseCases, store artifactStore, maxFileSize int64, ffmpegPath string, ffmpegOK bool, logger *logrus.Logger) *Handler {
	return &Handler{
		conversions: conversions,
		store:       store,
		maxFileSize: maxFileSize,
		ffmpegPath:  ffmpegPath,
		ffmpegOK:    ffmpegOK,
		logger:      logger,
		startedAt:   time.Now(),
	}
}

type convertRequest struct {
	URL          string `json:"url"`
	AudioQuality string `json:"audioQuality"`
	AudioFormat  string `json:"audioFormat"`
}

// Convert handles POST /convert. The response returns before the
// conversion completes; callers poll /status/{id}.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, conversiondomain.NewValidationError("invalid request body"))
		return
	}

	result, err := h.conversions.Submit(r.Context(), req.URL, conversiondomain.Options{
		AudioFormat:  req.AudioFormat,
		AudioQuality: req.AudioQuality,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"jobId":       result.JobID,
		"title":       result.Title,
		"fileName":    result.ArtifactName,
		"statusUrl":   "/status/" + result.JobID,
		"downloadUrl": "/download/" + result.ArtifactName,
	})
}

// Status handles GET /status/{id}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	view, err := h.conversions.Status(jobID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"jobId":    view.JobID,
		"status":   string(view.Status),
		"progress": view.Progress,
		"fileName": view.ArtifactName,
	}
	if view.Status == conversiondomain.StatusCompleted {
		resp["downloadUrl"] = "/download/" + view.ArtifactName
		resp["fileSize"] = view.ArtifactSize
	}
	if view.Status == conversiondomain.StatusFailed && view.Err != nil {
		resp["error"] = view.Err.Message
		resp["code"] = string(view.Err.Kind)
		if view.Err.Reason != "" {
			resp["reason"] = view.Err.Reason
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /download/{filename}. The artifact is deleted after
// the stream completes successfully, so a second retrieval reports 404.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(mux.Vars(r)["filename"])

	file, info, err := h.store.Open(name)
	if err != nil {
		writeError(w, conversiondomain.NewNotFoundError("file"))
		return
	}
	defer file.Close()

	if !conversiondomain.ValidFileSize(info.Size(), h.maxFileSize) {
		writeError(w, conversiondomain.NewFileSizeError(info.Size(), h.maxFileSize))
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(name))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))

	written, err := io.Copy(w, file)
	if err != nil || written != info.Size() {
		h.logger.WithFields(logrus.Fields{"file": name, "written": written, "error": err}).Error("artifact streaming interrupted")
		return
	}

	if err := h.store.Remove(name); err != nil {
		h.logger.WithFields(logrus.Fields{"file": name, "error": err}).Error("failed to delete delivered artifact")
		return
	}
	h.logger.WithField("file", name).Info("artifact delivered and deleted")
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ffmpeg := "not found"
	if h.ffmpegOK {
		ffmpeg = "available"
	}
	ffmpegPath := h.ffmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "not configured"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"ffmpeg":     ffmpeg,
		"ffmpegPath": ffmpegPath,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"uptime":     time.Since(h.startedAt).Seconds(),
	})
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".opus":
		return "audio/opus"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *conversiondomain.AppError
	if !errors.As(err, &appErr) {
		appErr = conversiondomain.AsAppError(err)
	}

	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}

	body := map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
		"code":    string(appErr.Kind),
	}
	if appErr.Reason != "" {
		body["reason"] = appErr.Reason
	}

	writeJSON(w, appErr.StatusCode, body)
}
