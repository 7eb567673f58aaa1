// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimGeocoder(t *testing.T) {
	var gotQuery, gotAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotAgent = r.UserAgent()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"display_name": "Avenida Paulista, Bela Vista, São Paulo",
			"address": {
				"house_number": "1578",
				"road": "Avenida Paulista",
				"suburb": "Bela Vista",
				"city": "São Paulo",
				"state": "São Paulo",
				"country_code": "br"
			}
		}`))
	}))
	defer server.Close()

	g := NewNominatimGeocoder(server.URL, server.Client())

	addr, err := g.ReverseGeocode(context.Background(), -23.5614, -46.6559)
	require.NoError(t, err)

	assert.Equal(t, Address{
		Street:       "Avenida Paulista",
		Neighborhood: "Bela vista",
		City:         "São paulo",
		State:        "SÃO PAULO",
	}, addr)
	assert.Contains(t, gotQuery, "format=jsonv2")
	assert.Contains(t, gotQuery, "lat=-23.561400")
	assert.Contains(t, gotQuery, "lon=-46.655900")
	assert.Equal(t, UserAgent, gotAgent)
}

func TestNominatimGeocoderErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
	}{
		{"rate limited", http.StatusTooManyRequests, ``, ErrorTypeRateLimit},
		{"unavailable", http.StatusServiceUnavailable, ``, ErrorTypeNetworkError},
		{"malformed body", http.StatusOK, `{"address": [`, ErrorTypeParseError},
		{"unable to geocode", http.StatusOK, `{"error": "Unable to geocode"}`, ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewNominatimGeocoder(server.URL, server.Client()).
				ReverseGeocode(context.Background(), -23.55, -46.63)
			require.Error(t, err)

			var geoErr *GeocodingError
			require.ErrorAs(t, err, &geoErr)
			assert.Equal(t, tt.wantType, geoErr.Type)
		})
	}
}

func TestNominatimGeocoderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewNominatimGeocoder(url, nil).ReverseGeocode(context.Background(), -23.55, -46.63)
	assert.Equal(t, ErrorTypeNetworkError, GeocodingErrorType(err))
}

func TestNominatimGeocoderTimeout(t *testing.T) {
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewNominatimGeocoder(server.URL, server.Client()).ReverseGeocode(ctx, -23.55, -46.63)
	require.Error(t, err)
	assert.True(t, IsTimeoutError(err))
}

func TestNominatimGeocoderBacksOffAfterRateLimit(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		_, _ = w.Write([]byte(`{"address": {"road": "Rua Augusta", "city": "São Paulo", "state": "São Paulo"}}`))
	}))
	defer server.Close()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := NewNominatimGeocoder(server.URL, server.Client())
	g.now = func() time.Time { return now }

	ctx := context.Background()

	_, err := g.ReverseGeocode(ctx, -23.55, -46.63)
	require.True(t, IsRateLimitError(err), err)

	// still inside Retry-After, the server is not called
	now = now.Add(time.Minute)
	_, err = g.ReverseGeocode(ctx, -23.55, -46.63)
	require.True(t, IsRateLimitError(err), err)
	assert.Equal(t, int32(1), hits.Load())

	now = now.Add(2 * time.Minute)
	addr, err := g.ReverseGeocode(ctx, -23.55, -46.63)
	require.NoError(t, err)
	assert.Equal(t, "Rua Augusta", addr.Street)
	assert.Equal(t, int32(2), hits.Load())
}
