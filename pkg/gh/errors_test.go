package gh

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ProviderError
		expected string
	}{
		{
			name: "error with resource",
			err: &ProviderError{
				Type:     ErrorTypeAuth,
				Message:  "invalid token",
				Resource: "repository acme/api",
			},
			expected: "authentication error for repository acme/api: invalid token",
		},
		{
			name: "error without resource",
			err: &ProviderError{
				Type:    ErrorTypeValidation,
				Message: "validation failed",
			},
			expected: "validation error: validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ProviderError{
		Type:    ErrorTypeNetwork,
		Message: "network error",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestWrapErrorNil(t *testing.T) {
	assert.NoError(t, wrapError(nil, "repository acme/api"))
}

func TestWrapErrorKeepsProviderError(t *testing.T) {
	original := &ProviderError{Type: ErrorTypeAuth, Message: "auth error"}

	wrapped := wrapError(original, "repository acme/api")

	var perr *ProviderError
	require.ErrorAs(t, wrapped, &perr)
	assert.Equal(t, ErrorTypeAuth, perr.Type)
	assert.Equal(t, "repository acme/api", perr.Resource, "empty resource gets filled in")

	again := wrapError(perr, "somewhere else")
	require.ErrorAs(t, again, &perr)
	assert.Equal(t, "repository acme/api", perr.Resource, "an existing resource is kept")
}

func TestWrapErrorAPIResponses(t *testing.T) {
	tests := []struct {
		name          string
		inputError    error
		resource      string
		expectedType  ErrorType
		expectedMsg   string
		expectedRetry bool
	}{
		{
			name: "401 unauthorized",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusUnauthorized},
				Message:  "Bad credentials",
			},
			resource:     "organization acme",
			expectedType: ErrorTypeAuth,
			expectedMsg:  "authentication failed, check your token",
		},
		{
			name: "401 with token hint",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusUnauthorized},
				Message:  "token expired",
			},
			resource:     "organization acme",
			expectedType: ErrorTypeAuth,
			expectedMsg:  "invalid or expired token, update your GITHUB_TOKEN or configuration",
		},
		{
			name: "403 rate limited",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusForbidden},
				Message:  "API rate limit exceeded for installation",
			},
			resource:      "organization acme",
			expectedType:  ErrorTypeRateLimit,
			expectedMsg:   "API rate limit exceeded, wait before retrying",
			expectedRetry: true,
		},
		{
			name: "403 missing permission",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusForbidden},
				Message:  "Forbidden",
			},
			resource:     "organization acme",
			expectedType: ErrorTypePermission,
			expectedMsg:  "insufficient permissions, your token may be missing required scopes",
		},
		{
			name: "403 on a secret names the scope",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusForbidden},
				Message:  "Forbidden",
			},
			resource:     "organization secret DEPLOY_KEY",
			expectedType: ErrorTypePermission,
			expectedMsg:  "(secrets require admin:org or repo administration access)",
		},
		{
			name: "403 on branch protection names the scope",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusForbidden},
				Message:  "Forbidden",
			},
			resource:     "repository api branch protection rules",
			expectedType: ErrorTypePermission,
			expectedMsg:  "(branch protection requires repo administration access)",
		},
		{
			name: "404 repository",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusNotFound},
				Message:  "Not Found",
			},
			resource:     "repository acme/api",
			expectedType: ErrorTypeNotFound,
			expectedMsg:  "repository not found, check the name and your access permissions",
		},
		{
			name: "404 team",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusNotFound},
				Message:  "Not Found",
			},
			resource:     "team @acme/platform",
			expectedType: ErrorTypeNotFound,
			expectedMsg:  "team not found, verify the team slug and organization",
		},
		{
			name: "404 user",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusNotFound},
				Message:  "Not Found",
			},
			resource:     "user @erin",
			expectedType: ErrorTypeNotFound,
			expectedMsg:  "user not found, verify the login is correct",
		},
		{
			name: "404 other resource",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusNotFound},
				Message:  "Not Found",
			},
			resource:     "environment production",
			expectedType: ErrorTypeNotFound,
			expectedMsg:  "resource not found",
		},
		{
			name: "409 conflict",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusConflict},
				Message:  "name already exists on this account",
			},
			resource:     "repository acme/api",
			expectedType: ErrorTypeConflict,
			expectedMsg:  "resource already exists with the same name",
		},
		{
			name: "500 server error",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusInternalServerError},
				Message:  "Internal Server Error",
			},
			resource:      "organization acme",
			expectedType:  ErrorTypeNetwork,
			expectedMsg:   "provider API is temporarily unavailable, try again later",
			expectedRetry: true,
		},
		{
			name: "teapot falls through",
			inputError: &github.ErrorResponse{
				Response: &http.Response{StatusCode: http.StatusTeapot},
				Message:  "I'm a teapot",
			},
			resource:     "organization acme",
			expectedType: ErrorTypeUnknown,
			expectedMsg:  "I'm a teapot",
		},
		{
			name:         "plain error",
			inputError:   errors.New("something odd"),
			resource:     "organization acme",
			expectedType: ErrorTypeUnknown,
			expectedMsg:  "something odd",
		},
		{
			name:          "network error by message",
			inputError:    errors.New("dial tcp 10.0.0.1:443: connection refused"),
			resource:      "organization acme",
			expectedType:  ErrorTypeNetwork,
			expectedMsg:   "network error occurred, check your connection and try again",
			expectedRetry: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := wrapError(tt.inputError, tt.resource)

			var perr *ProviderError
			require.ErrorAs(t, wrapped, &perr)
			assert.Equal(t, tt.expectedType, perr.Type)
			assert.Contains(t, perr.Message, tt.expectedMsg)
			assert.Equal(t, tt.resource, perr.Resource)
			assert.Equal(t, tt.expectedRetry, perr.IsRetryable())
		})
	}
}

func TestWrapErrorValidationDetails(t *testing.T) {
	apiErr := &github.ErrorResponse{
		Response: &http.Response{StatusCode: http.StatusUnprocessableEntity},
		Message:  "Validation Failed",
		Errors: []github.Error{
			{Field: "name", Message: "is required", Code: "missing_field"},
			{Message: "repository name is invalid"},
		},
	}

	var perr *ProviderError
	require.ErrorAs(t, wrapError(apiErr, "repository acme/api"), &perr)
	assert.Equal(t, ErrorTypeValidation, perr.Type)
	assert.Equal(t, "validation failed: name: is required; repository name is invalid", perr.Message)
	assert.Equal(t, "name", perr.Field)
	assert.Equal(t, "missing_field", perr.Code)
	assert.False(t, perr.IsRetryable())
}

func TestWrapErrorRateLimits(t *testing.T) {
	t.Run("primary rate limit", func(t *testing.T) {
		reset := time.Now().Add(time.Minute)
		err := wrapError(&github.RateLimitError{
			Rate: github.Rate{Reset: github.Timestamp{Time: reset}},
		}, "organization acme")

		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrorTypeRateLimit, perr.Type)
		assert.Contains(t, perr.Message, "rate limit exceeded, resets at")
		assert.True(t, perr.IsRetryable())
	})

	t.Run("secondary rate limit", func(t *testing.T) {
		err := wrapError(&github.AbuseRateLimitError{}, "organization acme")

		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrorTypeRateLimit, perr.Type)
		assert.Contains(t, perr.Message, "secondary rate limit")
		assert.True(t, perr.IsRetryable())
	})
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "connection refused",
			err:      errors.New("dial tcp: connection refused"),
			expected: true,
		},
		{
			name:     "no such host",
			err:      errors.New("dial tcp: lookup ghe.internal: no such host"),
			expected: true,
		},
		{
			name:     "i/o timeout",
			err:      errors.New("read tcp: i/o timeout"),
			expected: true,
		},
		{
			name:     "regular error",
			err:      errors.New("some other error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isNetworkError(tt.err))
		})
	}
}

func TestIsAlreadyGone(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "not found counts as gone",
			err:      &ProviderError{Type: ErrorTypeNotFound},
			expected: true,
		},
		{
			name:     "conflict counts as gone",
			err:      &ProviderError{Type: ErrorTypeConflict},
			expected: true,
		},
		{
			name:     "validation counts as gone",
			err:      &ProviderError{Type: ErrorTypeValidation},
			expected: true,
		},
		{
			name:     "permission does not",
			err:      &ProviderError{Type: ErrorTypePermission},
			expected: false,
		},
		{
			name:     "plain error does not",
			err:      errors.New("gone-ish"),
			expected: false,
		},
		{
			name:     "nil does not",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isAlreadyGone(tt.err))
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialInterval)
	assert.Equal(t, 30*time.Second, cfg.MaxInterval)
	assert.Equal(t, 2.0, cfg.Multiplier)
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("successful operation on first try", func(t *testing.T) {
		callCount := 0
		err := withRetry(context.Background(), fastRetryConfig(), func() error {
			callCount++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, callCount)
	})

	t.Run("successful operation after retries", func(t *testing.T) {
		callCount := 0
		err := withRetry(context.Background(), fastRetryConfig(), func() error {
			callCount++
			if callCount < 3 {
				return &ProviderError{Type: ErrorTypeNetwork, Message: "network error", Retryable: true}
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, callCount)
	})

	t.Run("non-retryable error fails immediately", func(t *testing.T) {
		callCount := 0
		failure := &ProviderError{Type: ErrorTypeAuth, Message: "auth error"}
		err := withRetry(context.Background(), fastRetryConfig(), func() error {
			callCount++
			return failure
		})

		assert.ErrorIs(t, err, failure)
		assert.Equal(t, 1, callCount)
	})

	t.Run("exhausts max retries", func(t *testing.T) {
		callCount := 0
		cfg := fastRetryConfig()
		cfg.MaxRetries = 2

		err := withRetry(context.Background(), cfg, func() error {
			callCount++
			return &ProviderError{Type: ErrorTypeNetwork, Message: "network error", Retryable: true}
		})

		assert.Error(t, err)
		assert.Equal(t, 3, callCount, "initial attempt plus two retries")
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		callCount := 0
		err := withRetry(ctx, fastRetryConfig(), func() error {
			callCount++
			return &ProviderError{Type: ErrorTypeNetwork, Message: "network error", Retryable: true}
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, callCount)
	})

	t.Run("retries errors without a taxonomy type", func(t *testing.T) {
		callCount := 0
		err := withRetry(context.Background(), fastRetryConfig(), func() error {
			callCount++
			if callCount == 1 {
				return errors.New("transient")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 2, callCount)
	})
}
