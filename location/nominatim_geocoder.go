// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// NominatimBaseURL is the public Nominatim API endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org"
	// UserAgent identifies the application, as the Nominatim usage policy requires.
	UserAgent = "denuncia/1.0 (+https://github.com/jcodagnone/denuncia)"

	nominatimProvider = "nominatim"

	// RateLimitBackoff is how long the geocoder stays quiet after a 429
	// without a Retry-After header.
	RateLimitBackoff = 30 * time.Second
)

// NominatimGeocoder uses the OpenStreetMap Nominatim reverse endpoint.
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time

	mu      sync.Mutex
	retryAt time.Time
}

// NewNominatimGeocoder creates a Nominatim geocoder limited to one request
// per second. httpClient is expected to set the User-Agent header (see
// httputils.NewClient).
func NewNominatimGeocoder(baseURL string, httpClient *http.Client) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = NominatimBaseURL
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &NominatimGeocoder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		now:        time.Now,
	}
}

type nominatimResponse struct {
	DisplayName string     `json:"display_name"`
	Address     RawAddress `json:"address"`
	Error       string     `json:"error"`
}

// ReverseGeocode implements Geocoder. After the server answers 429 calls
// fail fast with a rate limit error until the backoff ends.
func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (Address, error) {
	if wait := g.backoffLeft(); wait > 0 {
		return Address{}, &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: fmt.Sprintf("%s: aguardando %v pelo limite de requisições", nominatimProvider, wait.Round(time.Second)),
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return Address{}, classifyTransportError(nominatimProvider, err)
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("zoom", "18")
	params.Set("accept-language", "pt-BR")

	reqURL := g.baseURL + "/reverse?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Address{}, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "creating request", Err: err}
	}

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Address{}, classifyTransportError(nominatimProvider, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		geoErr := ClassifyHTTPError(resp.StatusCode, nominatimProvider)
		if IsRateLimitError(geoErr) {
			g.backOff(resp.Header.Get("Retry-After"))
		}

		return Address{}, geoErr
	}

	var nomResp nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&nomResp); err != nil {
		return Address{}, &GeocodingError{
			Type:    ErrorTypeParseError,
			Message: nominatimProvider + ": resposta inválida",
			Err:     err,
		}
	}

	if nomResp.Error != "" {
		return Address{}, &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("%s: %s", nominatimProvider, nomResp.Error),
		}
	}

	return FormatAddress(nomResp.Address), nil
}

func (g *NominatimGeocoder) backoffLeft() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.retryAt.Sub(g.now())
}

// backOff pauses requests for the Retry-After seconds, or RateLimitBackoff.
func (g *NominatimGeocoder) backOff(retryAfter string) {
	wait := RateLimitBackoff
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		wait = time.Duration(secs) * time.Second
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.retryAt = g.now().Add(wait)
}
