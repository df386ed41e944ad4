package conversion

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the machine-readable category surfaced to clients.
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION_ERROR"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindConversion ErrorKind = "CONVERSION_ERROR"
	KindFileSize   ErrorKind = "FILE_SIZE_EXCEEDED"
	KindRateLimit  ErrorKind = "RATE_LIMIT_EXCEEDED"
)

// Failure reasons refining KindConversion. The classifier maps raw
// process output onto these; ReasonGeneric is the fallback.
const (
	ReasonAccessForbidden     = "access_forbidden"
	ReasonSignatureExtraction = "signature_extraction_failed"
	ReasonFormatUnavailable   = "format_unavailable"
	ReasonVideoUnavailable    = "video_unavailable"
	ReasonPrivateVideo        = "private_video"
	ReasonSABRStreaming       = "sabr_streaming"
	ReasonLaunchFailed        = "launch_failed"
	ReasonVerification        = "verification_failed"
	ReasonMetadataFetch       = "metadata_fetch_failed"
	ReasonGeneric             = "conversion_failed"
)

const maxDetailLen = 500

// AppError is an operational error with a stable kind and an HTTP status.
// All errors crossing the job boundary are of this type.
type AppError struct {
	Kind       ErrorKind
	Reason     string
	StatusCode int
	Message    string
	Detail     string
	RetryAfter int
}

func (e *AppError) Error() string {
	return e.Message
}

// NewValidationError reports malformed caller input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		StatusCode: http.StatusBadRequest,
		Message:    message,
	}
}

// NewNotFoundError reports an unknown job id or a missing artifact.
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		StatusCode: http.StatusNotFound,
		Message:    resource + " not found",
	}
}

// NewConversionError reports an external process failure with diagnostic detail.
func NewConversionError(reason, message, detail string) *AppError {
	return &AppError{
		Kind:       KindConversion,
		Reason:     reason,
		StatusCode: http.StatusInternalServerError,
		Message:    message,
		Detail:     Truncate(detail, maxDetailLen),
	}
}

// NewFileSizeError reports a zero-length or oversized artifact.
func NewFileSizeError(size, maxSize int64) *AppError {
	return &AppError{
		Kind:       KindFileSize,
		StatusCode: http.StatusBadRequest,
		Message: fmt.Sprintf("file size (%.2f MB) exceeds maximum allowed size (%.2f MB)",
			float64(size)/1024/1024, float64(maxSize)/1024/1024),
	}
}

// NewRateLimitError reports request throttling with a retry-after hint in seconds.
func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Kind:       KindRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Message:    "too many requests, please try again later",
		RetryAfter: retryAfter,
	}
}

// AsAppError returns err as an AppError, wrapping unexpected failures into a
// generic conversion error so nothing crosses the job boundary unclassified.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewConversionError(ReasonGeneric, "an error occurred during conversion", err.Error())
}

// Truncate bounds diagnostic text to at most n bytes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
