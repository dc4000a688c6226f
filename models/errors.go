package models

import "fmt"

// ErrorKind classifies failures so the API layer can map them to HTTP
// status codes.
type ErrorKind string

const (
	// ErrKindValidation means the inbound URL was absent, not a string, or
	// lacked an http/https prefix. Detected before any browser work.
	ErrKindValidation ErrorKind = "VALIDATION_ERROR"

	// ErrKindScrapeFailed covers every failure inside the task runner:
	// browser launch, navigation, the navigation timeout, and extraction.
	ErrKindScrapeFailed ErrorKind = "SCRAPE_FAILED"

	// ErrKindUnauthorized is produced by the optional auth middleware.
	ErrKindUnauthorized ErrorKind = "UNAUTHORIZED"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ScrapeError is the internal error type carrying an ErrorKind.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(kind ErrorKind, message string, err error) *ScrapeError {
	return &ScrapeError{Kind: kind, Message: message, Err: err}
}

// ToResponse converts an internal error to the API-facing body.
func (e *ScrapeError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Error()}
}
