package ytdlp

import (
	"strings"

	"tunegrab/internal/domain/conversion"
)

type failureSignature struct {
	substrings []string
	reason     string
	message    string
}

// Known upstream failure signatures, checked in order; the first match wins.
// Patterns do not overlap in practice but the fixed order keeps
// classification deterministic if they ever do.
var failureSignatures = []failureSignature{
	{
		substrings: []string{"HTTP Error 403", "Forbidden"},
		reason:     conversion.ReasonAccessForbidden,
		message:    "the source is blocking the download (403 Forbidden), try updating yt-dlp",
	},
	{
		substrings: []string{"Signature extraction failed"},
		reason:     conversion.ReasonSignatureExtraction,
		message:    "signature extraction failed, this is often caused by an outdated yt-dlp version",
	},
	{
		substrings: []string{"Requested format is not available"},
		reason:     conversion.ReasonFormatUnavailable,
		message:    "requested format is not available for this video",
	},
	{
		substrings: []string{"Video unavailable"},
		reason:     conversion.ReasonVideoUnavailable,
		message:    "video is unavailable, it may be deleted or restricted",
	},
	{
		substrings: []string{"Private video"},
		reason:     conversion.ReasonPrivateVideo,
		message:    "this video is private and cannot be downloaded",
	},
	{
		substrings: []string{"SABR streaming"},
		reason:     conversion.ReasonSABRStreaming,
		message:    "the source is using SABR streaming, try updating yt-dlp",
	},
}

// Classify maps raw process failure text onto the error taxonomy. Unmatched
// text yields the generic conversion failure carrying the raw text as
// bounded diagnostic detail.
func Classify(stderr string) *conversion.AppError {
	for _, sig := range failureSignatures {
		for _, substr := range sig.substrings {
			if strings.Contains(stderr, substr) {
				return conversion.NewConversionError(sig.reason, sig.message, stderr)
			}
		}
	}
	return conversion.NewConversionError(conversion.ReasonGeneric, "an error occurred during conversion", stderr)
}
