package conversion

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tunegrab/internal/cache"
	conversiondomain "tunegrab/internal/domain/conversion"
)

// SubmitResult is returned to the caller immediately, before the external
// process has produced anything.
type SubmitResult struct {
	JobID        string
	Title        string
	ArtifactName string
}

// JobView is a read-only snapshot served to status polling.
type JobView struct {
	JobID        string
	Status       conversiondomain.Status
	Progress     int
	Title        string
	ArtifactName string
	ArtifactSize int64
	Err          *conversiondomain.AppError
	CreatedAt    time.Time
}

// Service owns the concurrent map of in-flight and completed jobs. Jobs are
// created on submission and mutated only by the runner's progress and
// outcome callbacks; terminal jobs are never evicted or resurrected.
type Service struct {
	converter Converter
	store     ArtifactStore
	metadata  *cache.Cache[string, conversiondomain.Metadata]
	logger    *logrus.Logger

	mu   sync.Mutex
	jobs map[string]*conversiondomain.Job
}

// NewService creates a conversion use-case service with injected ports.
func NewService(converter Converter, store ArtifactStore, metadata *cache.Cache[string, conversiondomain.Metadata], logger *logrus.Logger) *Service {
	return &Service{
		converter: converter,
		store:     store,
		metadata:  metadata,
		logger:    logger,
		jobs:      make(map[string]*conversiondomain.Job),
	}
}

// Submit validates the request, resolves source metadata (cache-checked),
// registers a job and starts the external process detached. It returns once
// the job exists; conversion outcome arrives via the job record.
func (s *Service) Submit(ctx context.Context, sourceURL string, opts conversiondomain.Options) (SubmitResult, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return SubmitResult{}, conversiondomain.NewValidationError("url is required")
	}
	if !conversiondomain.IsValidSourceURL(sourceURL) {
		return SubmitResult{}, conversiondomain.NewValidationError("invalid source URL")
	}
	opts = conversiondomain.NormalizeOptions(opts)

	meta, err := s.resolveMetadata(ctx, sourceURL)
	if err != nil {
		return SubmitResult{}, err
	}

	title := meta.Title
	if title == "" {
		title = "download"
	}
	artifactName := fmt.Sprintf("%s-%d.%s",
		conversiondomain.SanitizeFilename(title), time.Now().UnixMilli(), opts.AudioFormat)

	outputPath, err := s.store.ArtifactPath(artifactName)
	if err != nil {
		return SubmitResult{}, conversiondomain.NewValidationError(err.Error())
	}

	job := &conversiondomain.Job{
		ID:           newJobID(),
		SourceURL:    sourceURL,
		Status:       conversiondomain.StatusQueued,
		Title:        title,
		ArtifactName: artifactName,
		ArtifactPath: outputPath,
		AudioFormat:  opts.AudioFormat,
		AudioQuality: opts.AudioQuality,
		CreatedAt:    time.Now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"jobId": job.ID, "url": sourceURL, "artifact": artifactName}).Info("conversion job submitted")
	go s.run(job.ID, sourceURL, outputPath, opts)

	return SubmitResult{JobID: job.ID, Title: title, ArtifactName: artifactName}, nil
}

// Status returns a snapshot of the job with the given id.
func (s *Service) Status(jobID string) (JobView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return JobView{}, conversiondomain.NewNotFoundError("conversion")
	}
	return JobView{
		JobID:        job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		Title:        job.Title,
		ArtifactName: job.ArtifactName,
		ArtifactSize: job.ArtifactSize,
		Err:          job.Err,
		CreatedAt:    job.CreatedAt,
	}, nil
}

func (s *Service) resolveMetadata(ctx context.Context, sourceURL string) (conversiondomain.Metadata, error) {
	if meta, ok := s.metadata.Get(sourceURL); ok {
		s.logger.WithField("url", sourceURL).Debug("video info retrieved from cache")
		return meta, nil
	}

	meta, err := s.converter.FetchMetadata(ctx, sourceURL)
	if err != nil {
		return conversiondomain.Metadata{}, conversiondomain.AsAppError(err)
	}
	s.metadata.Set(sourceURL, meta)
	return meta, nil
}

// run drives a single conversion in the background. The registry stays
// decoupled from the process: all mutation goes through terminal-guarded
// upserts keyed by job id.
func (s *Service) run(jobID, sourceURL, outputPath string, opts conversiondomain.Options) {
	s.markProcessing(jobID)

	info, err := s.converter.Convert(context.Background(), sourceURL, outputPath, opts, func(percent int) {
		s.updateProgress(jobID, percent)
	})
	if err != nil {
		s.fail(jobID, conversiondomain.AsAppError(err))
		return
	}
	s.complete(jobID, info)
}

func (s *Service) markProcessing(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = conversiondomain.StatusProcessing
}

// updateProgress applies a monotonic progress update, capped at 99 so no
// reader sees 100 before the artifact is verified. Late callbacks arriving
// after a terminal transition are dropped.
func (s *Service) updateProgress(jobID string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 99 {
		percent = 99
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	if percent > job.Progress {
		job.Progress = percent
	}
}

// complete sets progress 100 atomically with the terminal transition.
func (s *Service) complete(jobID string, info conversiondomain.ArtifactInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = conversiondomain.StatusCompleted
	job.Progress = 100
	job.ArtifactPath = info.Path
	job.ArtifactSize = info.Size
	s.logger.WithFields(logrus.Fields{"jobId": jobID, "size": info.Size}).Info("conversion job completed")
}

func (s *Service) fail(jobID string, appErr *conversiondomain.AppError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = conversiondomain.StatusFailed
	job.Err = appErr
	s.logger.WithFields(logrus.Fields{"jobId": jobID, "kind": appErr.Kind, "reason": appErr.Reason, "error": appErr.Message}).Error("conversion job failed")
}

// newJobID combines a timestamp with a random component so concurrent
// submissions never collide.
func newJobID() string {
	return fmt.Sprintf("conv_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
