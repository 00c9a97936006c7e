package gh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v66/github"
)

// ErrorType represents different categories of provider API errors
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "authentication"
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// ProviderError represents a structured error from provider operations
type ProviderError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Resource  string    `json:"resource,omitempty"`
	Field     string    `json:"field,omitempty"`
	Code      string    `json:"code,omitempty"`
	Retryable bool      `json:"retryable"`
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s error for %s: %s", e.Type, e.Resource, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *ProviderError) IsRetryable() bool {
	return e.Retryable
}

// wrapError wraps a provider API error into our structured error type.
// A nil err yields a nil error, so call sites can return it unconditionally.
func wrapError(err error, resource string) error {
	if err == nil {
		return nil
	}

	// If it's already a ProviderError, keep it and fill in the resource
	var perr *ProviderError
	if errors.As(err, &perr) {
		if perr.Resource == "" {
			perr.Resource = resource
		}
		return perr
	}

	var apiErr *github.ErrorResponse
	if errors.As(err, &apiErr) {
		return parseAPIError(apiErr, resource)
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &ProviderError{
			Type:      ErrorTypeRateLimit,
			Message:   fmt.Sprintf("rate limit exceeded, resets at %v", rateErr.Rate.Reset.Time),
			Cause:     err,
			Resource:  resource,
			Retryable: true,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &ProviderError{
			Type:      ErrorTypeRateLimit,
			Message:   "secondary rate limit hit, backing off",
			Cause:     err,
			Resource:  resource,
			Retryable: true,
		}
	}

	if isNetworkError(err) {
		return &ProviderError{
			Type:      ErrorTypeNetwork,
			Message:   "network error occurred, check your connection and try again",
			Cause:     err,
			Resource:  resource,
			Retryable: true,
		}
	}

	return &ProviderError{
		Type:      ErrorTypeUnknown,
		Message:   err.Error(),
		Cause:     err,
		Resource:  resource,
		Retryable: false,
	}
}

// parseAPIError parses provider API error responses into structured errors
func parseAPIError(apiErr *github.ErrorResponse, resource string) *ProviderError {
	baseErr := &ProviderError{
		Resource: resource,
		Cause:    apiErr,
	}

	switch apiErr.Response.StatusCode {
	case http.StatusUnauthorized:
		baseErr.Type = ErrorTypeAuth
		baseErr.Message = "authentication failed, check your token"
		baseErr.Retryable = false

		if strings.Contains(apiErr.Message, "token") {
			baseErr.Message = "invalid or expired token, update your GITHUB_TOKEN or configuration"
		}

	case http.StatusForbidden:
		if strings.Contains(apiErr.Message, "rate limit") {
			baseErr.Type = ErrorTypeRateLimit
			baseErr.Message = "API rate limit exceeded, wait before retrying"
			baseErr.Retryable = true
		} else {
			baseErr.Type = ErrorTypePermission
			baseErr.Message = "insufficient permissions, your token may be missing required scopes"
			baseErr.Retryable = false

			if strings.Contains(resource, "secret") {
				baseErr.Message += " (secrets require admin:org or repo administration access)"
			} else if strings.Contains(resource, "branch protection") {
				baseErr.Message += " (branch protection requires repo administration access)"
			}
		}

	case http.StatusNotFound:
		baseErr.Type = ErrorTypeNotFound
		baseErr.Retryable = false

		switch {
		case strings.Contains(resource, "repository"):
			baseErr.Message = "repository not found, check the name and your access permissions"
		case strings.Contains(resource, "team"):
			baseErr.Message = "team not found, verify the team slug and organization"
		case strings.Contains(resource, "user"):
			baseErr.Message = "user not found, verify the login is correct"
		default:
			baseErr.Message = "resource not found"
		}

	case http.StatusConflict:
		baseErr.Type = ErrorTypeConflict
		baseErr.Message = "resource conflict occurred"
		baseErr.Retryable = false

		if strings.Contains(apiErr.Message, "already exists") {
			baseErr.Message = "resource already exists with the same name"
		}

	case http.StatusUnprocessableEntity:
		baseErr.Type = ErrorTypeValidation
		baseErr.Message = "validation failed"
		baseErr.Retryable = false

		if len(apiErr.Errors) > 0 {
			var details []string
			for _, e := range apiErr.Errors {
				if e.Field != "" {
					details = append(details, fmt.Sprintf("%s: %s", e.Field, e.Message))
					if baseErr.Field == "" {
						baseErr.Field = e.Field
						baseErr.Code = e.Code
					}
				} else if e.Message != "" {
					details = append(details, e.Message)
				}
			}
			if len(details) > 0 {
				baseErr.Message = fmt.Sprintf("validation failed: %s", strings.Join(details, "; "))
			}
		}

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		baseErr.Type = ErrorTypeNetwork
		baseErr.Message = "provider API is temporarily unavailable, try again later"
		baseErr.Retryable = true

	default:
		baseErr.Type = ErrorTypeUnknown
		baseErr.Message = apiErr.Message
		baseErr.Retryable = apiErr.Response.StatusCode >= 500
	}

	return baseErr
}

// isNetworkError checks if an error is a network-related error
func isNetworkError(err error) bool {
	errStr := strings.ToLower(err.Error())
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"network is unreachable",
		"no such host",
		"timeout",
		"dial tcp",
		"i/o timeout",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isAlreadyGone reports whether a delete failed because the target no
// longer exists in a usable form. The provider answers 404 for missing
// resources, and 409 or 422 for ones a concurrent change removed, so all
// three count as done for an idempotent delete.
func isAlreadyGone(err error) bool {
	var perr *ProviderError
	if !errors.As(err, &perr) {
		return false
	}
	switch perr.Type {
	case ErrorTypeNotFound, ErrorTypeConflict, ErrorTypeValidation:
		return true
	}
	return false
}

// RetryConfig defines configuration for retry logic
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

// withRetry executes an operation with exponential backoff. Errors the
// taxonomy marks non-retryable abort immediately, as does context
// cancellation.
func withRetry(ctx context.Context, cfg RetryConfig, operation func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = cfg.InitialInterval
	expo.MaxInterval = cfg.MaxInterval
	expo.Multiplier = cfg.Multiplier
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, cfg.MaxRetries), ctx)

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}
		var perr *ProviderError
		if errors.As(err, &perr) && !perr.IsRetryable() {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
