// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"github.com/apex/log"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

const (
	// GoogleMapsBaseURL is the Google Maps Geocoding API endpoint.
	GoogleMapsBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"
	// GoogleMapsKeyDisplayName is the display name of the API key looked up
	// through Application Default Credentials.
	GoogleMapsKeyDisplayName = "Denuncia Geocoding Key"

	googleProvider = "google_maps"
)

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey, baseURL string, httpClient *http.Client) *GoogleMapsGeocoder {
	if baseURL == "" {
		baseURL = GoogleMapsBaseURL
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleMapsGeocoder{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type googleAddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type googleMapsResponse struct {
	Results []struct {
		AddressComponents []googleAddressComponent `json:"address_components"`
		FormattedAddress  string                   `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, etc.
	ErrorMessage string `json:"error_message"`
}

// ReverseGeocode implements Geocoder.
func (g *GoogleMapsGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (Address, error) {
	params := url.Values{}
	params.Set("latlng", strconv.FormatFloat(lat, 'f', 6, 64)+","+strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("key", g.apiKey)
	params.Set("language", "pt-BR")
	params.Set("region", "br")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Address{}, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "creating request", Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Address{}, classifyTransportError(googleProvider, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)

		return Address{}, ClassifyHTTPError(resp.StatusCode, googleProvider)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return Address{}, &GeocodingError{
			Type:    ErrorTypeParseError,
			Message: googleProvider + ": resposta inválida",
			Err:     err,
		}
	}

	if err := classifyGoogleStatus(gmResp.Status, gmResp.ErrorMessage); err != nil {
		return Address{}, err
	}

	if len(gmResp.Results) == 0 {
		return Address{}, &GeocodingError{Type: ErrorTypeNotFound, Message: googleProvider + ": sem resultados"}
	}

	return FormatAddress(googleRawAddress(gmResp.Results[0].AddressComponents)), nil
}

func classifyGoogleStatus(status, message string) *GeocodingError {
	msg := fmt.Sprintf("%s: status %s", googleProvider, status)
	if message != "" {
		msg += ": " + message
	}

	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS":
		return &GeocodingError{Type: ErrorTypeNotFound, Message: msg}
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: msg}
	case "REQUEST_DENIED", "INVALID_REQUEST":
		return &GeocodingError{Type: ErrorTypeInvalidRequest, Message: msg}
	default:
		return &GeocodingError{Type: ErrorTypeUnknown, Message: msg}
	}
}

func hasType(c googleAddressComponent, t string) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}

	return false
}

// googleRawAddress maps address_components onto the provider neutral fields.
func googleRawAddress(components []googleAddressComponent) RawAddress {
	var raw RawAddress

	for _, c := range components {
		switch {
		case hasType(c, "route"):
			raw.Road = c.LongName
		case hasType(c, "sublocality"), hasType(c, "sublocality_level_1"):
			raw.Suburb = c.LongName
		case hasType(c, "neighborhood"):
			raw.Neighbourhood = c.LongName
		case hasType(c, "locality"):
			raw.City = c.LongName
		case hasType(c, "administrative_area_level_2"):
			raw.County = c.LongName
		case hasType(c, "administrative_area_level_1"):
			raw.State = c.ShortName
		}
	}

	return raw
}

// APIKeyFromADC looks up the Google Maps API key through Application Default
// Credentials. projectID may be empty when the credentials carry one.
func APIKeyFromADC(ctx context.Context, projectID string) (string, error) {
	if projectID == "" {
		creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return "", fmt.Errorf("finding default credentials: %w", err)
		}

		projectID = creds.ProjectID
	}

	if projectID == "" {
		return "", errors.New("no project id in credentials, set GOOGLE_CLOUD_PROJECT")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if !strings.EqualFold(key.DisplayName, GoogleMapsKeyDisplayName) {
			continue
		}

		log.WithField("key", key.Name).Debug("found geocoding key, retrieving secret")

		// ListKeys redacts the KeyString
		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key %q found but its key string is empty", GoogleMapsKeyDisplayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name %q not found in project %s", GoogleMapsKeyDisplayName, projectID)
}
