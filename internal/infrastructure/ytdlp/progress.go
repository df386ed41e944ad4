package ytdlp

import (
	"regexp"
	"strconv"
)

// yt-dlp writes human-oriented status lines, not a stable machine format.
// All recognition lives in the pattern tables below so upstream format
// drift stays a localized change.

var (
	downloadPattern = regexp.MustCompile(`(?i)\[download\]\s+(\d+\.?\d*)%`)
	speedPattern    = regexp.MustCompile(`(?i)at\s+([\d.]+[KMGT]?i?B/s)`)
	etaPattern      = regexp.MustCompile(`(?i)ETA\s+(\d+:\d+)`)

	completePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\[download\]\s+100%`),
		regexp.MustCompile(`(?i)\[ExtractAudio\]\s+Destination:`),
		regexp.MustCompile(`(?i)\[Merger\]\s+Merging formats`),
		regexp.MustCompile(`(?i)Deleting original file`),
	}
)

// ParseProgress extracts the download percentage from a
// "[download]  42.7% of 3.52MiB at 1.23MiB/s ETA 00:12" shaped line.
// Any other shape yields false.
func ParseProgress(line string) (float64, bool) {
	if line == "" {
		return 0, false
	}
	match := downloadPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseSpeed extracts the transfer rate string, informational only.
func ParseSpeed(line string) (string, bool) {
	if line == "" {
		return "", false
	}
	match := speedPattern.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseETA extracts the remaining-time string, informational only.
func ParseETA(line string) (string, bool) {
	if line == "" {
		return "", false
	}
	match := etaPattern.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// IsComplete reports whether the line signals the finishing phase: download
// done, audio extraction started, or format merging started. These carry no
// percentage but mean the transfer itself is over.
func IsComplete(line string) bool {
	if line == "" {
		return false
	}
	for _, pattern := range completePatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}
