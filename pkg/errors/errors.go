package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport failures and unexpected upstream status codes
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents HTTP 429 responses or an active block window
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeBlocked represents block pages (403, suspiciously small bodies)
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeNotFound represents a missing cart, item or product
	ErrorTypeNotFound ErrorType = "not_found"
)

// ScrapeError is the error type shared by the fetch, scrape and storage layers
type ScrapeError struct {
	Type       ErrorType
	Platform   string
	Message    string
	StatusCode int
	RetryAfter time.Duration
	Err        error
	Time       time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Platform != "" {
		prefix += " " + e.Platform + ":"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s - %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether another attempt may succeed
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork:
		// client errors will not change on retry
		if e.StatusCode >= 400 && e.StatusCode < 500 {
			return false
		}
		return true
	case ErrorTypeRateLimit, ErrorTypeBlocked:
		return true
	default:
		return false
	}
}

// New creates a new ScrapeError
func New(errType ErrorType, platform, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:     errType,
		Platform: platform,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, platform, message, err)
}

// NewStatus creates a network error for an unexpected HTTP status code
func NewStatus(platform string, statusCode int) *ScrapeError {
	e := New(ErrorTypeNetwork, platform, fmt.Sprintf("unexpected status code: %d", statusCode), nil)
	e.StatusCode = statusCode
	return e
}

// NewParsing creates a new parsing error
func NewParsing(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, platform, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(platform string, retryAfter time.Duration) *ScrapeError {
	e := New(ErrorTypeRateLimit, platform, fmt.Sprintf("rate limited; retry after %v", retryAfter), nil)
	e.RetryAfter = retryAfter
	e.StatusCode = 429
	return e
}

// NewBlocked creates a new block page error
func NewBlocked(platform, message string) *ScrapeError {
	return New(ErrorTypeBlocked, platform, message, nil)
}

// NewCache creates a new cache error
func NewCache(platform, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, platform, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, "", message, err)
}

// NewValidation creates a new validation error
func NewValidation(platform, message string) *ScrapeError {
	return New(ErrorTypeValidation, platform, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewNotFound creates a new not found error
func NewNotFound(message string, err error) *ScrapeError {
	return New(ErrorTypeNotFound, "", message, err)
}

// TypeOf returns the ErrorType of the first ScrapeError in err's chain
func TypeOf(err error) (ErrorType, bool) {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.Type, true
	}
	return "", false
}

// Is reports whether err carries a ScrapeError of the given type
func Is(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsRetryable reports whether err is a retryable ScrapeError
func IsRetryable(err error) bool {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.IsRetryable()
	}
	return false
}

// RetryAfterOf returns the server requested wait carried by a rate limit error
func RetryAfterOf(err error) (time.Duration, bool) {
	var se *ScrapeError
	if stderrors.As(err, &se) && se.Type == ErrorTypeRateLimit {
		return se.RetryAfter, true
	}
	return 0, false
}

// StatusCodeOf returns the upstream HTTP status carried by err, zero when none
func StatusCodeOf(err error) int {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
