// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkFunc(tt.err))
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"rate limit error type", &GeocodingError{Type: ErrorTypeRateLimit, Message: "rate limit"}, true},
		{"wrapped rate limit", fmt.Errorf("lookup: %w", &GeocodingError{Type: ErrorTypeRateLimit}), true},
		{"message contains rate limit", errors.New("rate limit exceeded"), true},
		{"message contains too many requests", errors.New("too many requests"), true},
		{"message contains 429", errors.New("nominatim returned status 429"), true},
		{"other error type", &GeocodingError{Type: ErrorTypeNotFound, Message: "not found"}, false},
		{"unrelated error", errors.New("some other error"), false},
	}, IsRateLimitError)
}

func TestIsQuotaExceededError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"quota exceeded error type", &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "quota"}, true},
		{"message contains over_query_limit", errors.New("google maps status: OVER_QUERY_LIMIT"), true},
		{"message contains quota exceeded", errors.New("quota exceeded"), true},
		{"other error type", &GeocodingError{Type: ErrorTypeRateLimit, Message: "rate limit"}, false},
		{"unrelated error", errors.New("some other error"), false},
	}, IsQuotaExceededError)
}

func TestIsTimeoutError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"timeout error type", &GeocodingError{Type: ErrorTypeTimeout, Message: "timeout"}, true},
		{"context deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"message contains timeout", errors.New("request timeout after 10 seconds"), true},
		{"message contains deadline exceeded", errors.New("context deadline exceeded"), true},
		{"other error type", &GeocodingError{Type: ErrorTypeNotFound, Message: "not found"}, false},
		{"unrelated error", errors.New("some other error"), false},
	}, IsTimeoutError)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		statusCode int
		wantType   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusServiceUnavailable, ErrorTypeNetworkError},
		{http.StatusBadGateway, ErrorTypeNetworkError},
		{http.StatusGatewayTimeout, ErrorTypeNetworkError},
		{http.StatusInternalServerError, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			got := ClassifyHTTPError(tt.statusCode, "nominatim")
			assert.Equal(t, tt.wantType, got.Type)
			assert.Contains(t, got.Error(), "nominatim")
		})
	}
}

func TestGeocodingErrorUnwrap(t *testing.T) {
	innerErr := errors.New("inner error")
	geoErr := &GeocodingError{Type: ErrorTypeNotFound, Message: "endereço não encontrado", Err: innerErr}

	assert.ErrorIs(t, geoErr, innerErr)
	assert.Equal(t, "endereço não encontrado: inner error", geoErr.Error())
	assert.Equal(t, ErrorTypeNotFound, GeocodingErrorType(fmt.Errorf("x: %w", geoErr)))
	assert.Equal(t, ErrorTypeUnknown, GeocodingErrorType(innerErr))
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "parse", ErrorTypeParseError.String())
	assert.Equal(t, "timeout", ErrorTypeTimeout.String())
	assert.Equal(t, "ErrorType(99)", ErrorType(99).String())
}

func TestPermissionError(t *testing.T) {
	err := fmt.Errorf("resolve: %w", &PermissionError{Status: PermissionDeniedPermanently})

	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "denied-permanently")

	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)
}

func TestFixError(t *testing.T) {
	err := &FixError{Err: fmt.Errorf("%w after 15s", ErrSensorTimeout)}

	assert.ErrorIs(t, err, ErrSensorTimeout)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}
