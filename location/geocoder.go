// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import "context"

// Geocoder interface for different reverse geocoding providers.
type Geocoder interface {
	// ReverseGeocode returns the formatted address for the coordinates, or a
	// *GeocodingError.
	ReverseGeocode(ctx context.Context, lat, lon float64) (Address, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, lat, lon float64) (Address, error)

// ReverseGeocode calls f.
func (f GeocoderFunc) ReverseGeocode(ctx context.Context, lat, lon float64) (Address, error) {
	return f(ctx, lat, lon)
}

// NoopGeocoder always fails, so resolution goes straight to the regional
// fallback.
type NoopGeocoder struct{}

// ReverseGeocode implements Geocoder.
func (NoopGeocoder) ReverseGeocode(context.Context, float64, float64) (Address, error) {
	return Address{}, &GeocodingError{Type: ErrorTypeNotFound, Message: "geocodificação desativada"}
}
