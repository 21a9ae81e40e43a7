package extractor

import (
	"context"
	"errors"
	"strings"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
)

var unavailableMarkers = []string{
	"private",
	"deleted",
	"unavailable",
	"not found",
	"has been removed",
	"no longer available",
}

var timeoutMarkers = []string{
	"timed out",
	"timeout",
}

// classify maps a raw source failure onto the error taxonomy.
func classify(err error, output string) *apperr.Error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeTimeout, "extraction source timed out", err)
	}

	msg := strings.ToLower(output)
	if msg == "" && err != nil {
		msg = strings.ToLower(err.Error())
	}
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return apperr.Wrap(apperr.CodeVideoUnavailable, "video is private, deleted or unavailable", err)
		}
	}
	for _, marker := range timeoutMarkers {
		if strings.Contains(msg, marker) {
			return apperr.Wrap(apperr.CodeTimeout, "extraction source timed out", err)
		}
	}
	return apperr.Wrap(apperr.CodeExtractionFailed, "extraction source failed", err)
}

// isTransient reports whether another attempt may succeed.
func isTransient(code apperr.Code) bool {
	switch code {
	case apperr.CodeTimeout, apperr.CodeExtractionFailed:
		return true
	}
	return false
}
