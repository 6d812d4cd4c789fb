package report

import "errors"

// Error kinds. Callers classify failures with errors.Is.
var (
	// ErrInvalidRequest is a missing or malformed request field.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrExpired means the cached preview the request refers to is gone.
	// The caller should re-submit the preview.
	ErrExpired = errors.New("report data has expired")

	// ErrNotFound means a file token did not resolve to a definition.
	ErrNotFound = errors.New("report not found")

	// ErrUnsupported is a format or mode no producer is registered for.
	ErrUnsupported = errors.New("unsupported export")
)
