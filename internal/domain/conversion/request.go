package conversion

import (
	"regexp"
	"strings"
)

// Audio formats the encoder accepts. Anything else falls back to mp3.
var allowedAudioFormats = map[string]bool{
	"mp3":  true,
	"m4a":  true,
	"opus": true,
	"wav":  true,
	"flac": true,
}

const (
	DefaultAudioFormat  = "mp3"
	DefaultAudioQuality = "0"

	maxFilenameLen = 200
)

var sourceURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?(youtube\.com|youtu\.be)/.+$`),
	regexp.MustCompile(`^https?://youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`^https?://youtu\.be/[\w-]+`),
	regexp.MustCompile(`^https?://youtube\.com/embed/[\w-]+`),
	regexp.MustCompile(`^https?://youtube\.com/v/[\w-]+`),
}

// IsValidSourceURL reports whether raw is a recognized source URL shape.
func IsValidSourceURL(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	for _, pattern := range sourceURLPatterns {
		if pattern.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// NormalizeOptions applies defaults and silently replaces unknown formats.
func NormalizeOptions(opts Options) Options {
	format := strings.ToLower(strings.TrimSpace(opts.AudioFormat))
	if !allowedAudioFormats[format] {
		format = DefaultAudioFormat
	}
	quality := strings.TrimSpace(opts.AudioQuality)
	if quality == "" {
		quality = DefaultAudioQuality
	}
	return Options{AudioFormat: format, AudioQuality: quality}
}

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
	underscoreRuns   = regexp.MustCompile(`_{2,}`)
)

// SanitizeFilename normalizes a title into a filesystem-safe base name.
func SanitizeFilename(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "download"
	}

	value = invalidFileChars.ReplaceAllString(value, "_")
	value = whitespaceRuns.ReplaceAllString(value, "_")
	value = underscoreRuns.ReplaceAllString(value, "_")
	value = strings.Trim(value, "_")
	if len(value) > maxFilenameLen {
		value = value[:maxFilenameLen]
	}
	if value == "" {
		return "download"
	}
	return value
}

// ValidFileSize reports whether size is non-empty and within the ceiling.
func ValidFileSize(size, maxSize int64) bool {
	return size > 0 && size <= maxSize
}
