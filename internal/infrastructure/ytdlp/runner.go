package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tunegrab/internal/domain/conversion"
)

const (
	defaultBinary   = "yt-dlp"
	stderrBufferCap = 4096

	// Short settle window between process exit and artifact verification,
	// the encoder may still be flushing its final write.
	defaultGraceDelay = time.Second

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Runner supervises yt-dlp executions: one process per conversion, stdout
// scraped for progress, stderr buffered for failure classification.
type Runner struct {
	binary      string
	ffmpegPath  string
	maxFileSize int64
	graceDelay  time.Duration
	logger      *logrus.Logger
}

// NewRunner creates a yt-dlp adapter. Empty binary falls back to "yt-dlp"
// resolved through PATH; empty ffmpegPath leaves location discovery to yt-dlp.
func NewRunner(binary, ffmpegPath string, maxFileSize int64, logger *logrus.Logger) *Runner {
	if binary == "" {
		binary = defaultBinary
	}
	return &Runner{
		binary:      binary,
		ffmpegPath:  ffmpegPath,
		maxFileSize: maxFileSize,
		graceDelay:  defaultGraceDelay,
		logger:      logger,
	}
}

// FetchMetadata asks yt-dlp for source metadata without downloading.
func (r *Runner) FetchMetadata(ctx context.Context, sourceURL string) (conversion.Metadata, error) {
	args := []string{
		"--dump-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		sourceURL,
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		r.logger.WithFields(logrus.Fields{"url": sourceURL, "error": err}).Error("metadata fetch failed")
		return conversion.Metadata{}, conversion.NewConversionError(
			conversion.ReasonMetadataFetch, "failed to fetch video information", stderr.String())
	}

	var meta conversion.Metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return conversion.Metadata{}, conversion.NewConversionError(
			conversion.ReasonMetadataFetch, "failed to parse video information", err.Error())
	}
	return meta, nil
}

// BuildArgs constructs the deterministic yt-dlp invocation for a conversion.
// Playlist expansion and interactive prompts are disabled and partial output
// is overwritten so reruns never stall.
func (r *Runner) BuildArgs(sourceURL, outputPath string, opts conversion.Options) []string {
	args := []string{
		"-x",
		"--audio-format", opts.AudioFormat,
		"--audio-quality", opts.AudioQuality,
		"-o", outputPath,
		"--no-keep-video",
		"--force-overwrites",
		"--no-playlist",
		"--progress",
		"--newline",
		"--user-agent", browserUserAgent,
		"--extractor-args", "youtube:player_client=android",
		"--no-warnings",
	}
	if r.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", r.ffmpegPath)
	}
	return append(args, sourceURL)
}

// Convert runs the external process, reporting distinct progress values
// through onProgress capped at 99 until the artifact is verified on disk,
// then exactly one onProgress(100). Failures come back classified.
func (r *Runner) Convert(ctx context.Context, sourceURL, outputPath string, opts conversion.Options, onProgress func(int)) (conversion.ArtifactInfo, error) {
	cmd := exec.CommandContext(ctx, r.binary, r.BuildArgs(sourceURL, outputPath, opts)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return conversion.ArtifactInfo{}, conversion.NewConversionError(
			conversion.ReasonLaunchFailed, "failed to start conversion process", err.Error())
	}
	stderr := newBoundedBuffer(stderrBufferCap)
	cmd.Stderr = stderr

	log := r.logger.WithFields(logrus.Fields{"url": sourceURL, "output": outputPath})
	log.WithFields(logrus.Fields{"format": opts.AudioFormat, "quality": opts.AudioQuality}).Info("starting conversion")

	if err := cmd.Start(); err != nil {
		return conversion.ArtifactInfo{}, conversion.NewConversionError(
			conversion.ReasonLaunchFailed, "failed to start conversion process", err.Error())
	}

	scanner := bufio.NewScanner(stdout)
	lastProgress := -1
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if value, ok := ParseProgress(line); ok {
			percent := int(value)
			if percent > 99 {
				percent = 99
			}
			if percent != lastProgress {
				lastProgress = percent
				if onProgress != nil {
					onProgress(percent)
				}
			}
		}

		if IsComplete(line) {
			log.WithField("line", line).Debug("conversion entering finishing phase")
		}
	}

	if err := cmd.Wait(); err != nil {
		appErr := Classify(stderr.String())
		log.WithFields(logrus.Fields{"error": err, "reason": appErr.Reason}).Error("conversion failed")
		return conversion.ArtifactInfo{}, appErr
	}

	time.Sleep(r.graceDelay)

	info, err := os.Stat(outputPath)
	if err != nil {
		return conversion.ArtifactInfo{}, conversion.NewConversionError(
			conversion.ReasonVerification, "converted file missing after process exit", err.Error())
	}
	if !conversion.ValidFileSize(info.Size(), r.maxFileSize) {
		_ = os.Remove(outputPath)
		return conversion.ArtifactInfo{}, conversion.NewFileSizeError(info.Size(), r.maxFileSize)
	}

	if onProgress != nil {
		onProgress(100)
	}

	log.WithField("size", info.Size()).Info("conversion completed")
	return conversion.ArtifactInfo{Path: outputPath, Size: info.Size()}, nil
}

// boundedBuffer keeps the first cap bytes written and drops the rest; the
// interesting failure text from yt-dlp comes early in stderr.
type boundedBuffer struct {
	buf bytes.Buffer
	cap int
}

func newBoundedBuffer(capacity int) *boundedBuffer {
	return &boundedBuffer{cap: capacity}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := b.cap - b.buf.Len()
	if remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	return b.buf.String()
}
