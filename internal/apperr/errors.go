// Package apperr defines the stable error codes returned by the extraction service
// and their mapping onto HTTP statuses.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error identifier.
type Code string

// Error codes surfaced to API callers.
const (
	CodeInvalidURL                 Code = "INVALID_URL"
	CodeInvalidInput               Code = "INVALID_INPUT"
	CodeUnsupportedPlatform        Code = "UNSUPPORTED_PLATFORM"
	CodeNotVideoContent            Code = "NOT_VIDEO_CONTENT"
	CodeVideoUnavailable           Code = "VIDEO_UNAVAILABLE"
	CodeVideoTooLong               Code = "VIDEO_TOO_LONG"
	CodeExtractionFailed           Code = "EXTRACTION_FAILED"
	CodeTimeout                    Code = "TIMEOUT"
	CodeTranscriptUnavailable      Code = "TRANSCRIPT_UNAVAILABLE"
	CodeTranscriptExtractionFailed Code = "TRANSCRIPT_EXTRACTION_FAILED"
	CodeThumbnailAnalysisFailed    Code = "THUMBNAIL_ANALYSIS_FAILED"
	CodeRateLimitExceeded          Code = "RATE_LIMIT_EXCEEDED"
	CodeAPIKeyInvalid              Code = "API_KEY_INVALID"
	CodeServiceUnavailable         Code = "SERVICE_UNAVAILABLE"
)

// Error carries a Code together with a caller-safe message and, for per-item
// failures, the URL and platform the failure belongs to.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Error struct {
	Code     Code
	Message  string
	URL      string
	Platform string
	Cause    error
}

// New creates an Error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that keeps cause reachable through errors.Unwrap.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithItem returns a copy of e annotated with the URL and platform of a batch item.
func (e *Error) WithItem(url, platform string) *Error {
	cp := *e
	cp.URL = url
	cp.Platform = platform
	return &cp
}

// As extracts an *Error from err. Context deadline errors become TIMEOUT and
// any other foreign error becomes EXTRACTION_FAILED.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeTimeout, "operation timed out", err)
	}
	return Wrap(CodeExtractionFailed, "extraction failed", err)
}

// CodeOf returns the Code carried by err.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return As(err).Code
}

// IsRequestShape reports whether code rejects the whole request before dispatch.
func IsRequestShape(code Code) bool {
	switch code {
	case CodeInvalidURL, CodeInvalidInput, CodeUnsupportedPlatform:
		return true
	}
	return false
}

// HTTPStatus maps an error code to the HTTP status used by the API.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidURL, CodeInvalidInput, CodeUnsupportedPlatform:
		return http.StatusBadRequest
	case CodeNotVideoContent, CodeVideoUnavailable, CodeVideoTooLong, CodeTranscriptUnavailable:
		return http.StatusUnprocessableEntity
	case CodeAPIKeyInvalid:
		return http.StatusUnauthorized
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
