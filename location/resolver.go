// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package location turns a permission gated position fix into a human
// readable Brazilian address. Resolution goes through a chain of fallbacks:
// reverse geocoding first, then a regional guess from the coordinates alone,
// then a placeholder address.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"

	"github.com/jcodagnone/denuncia/metrics"
	"github.com/jcodagnone/denuncia/spatial"
)

// Source tells where the address of a Result came from.
type Source string

const (
	SourceGeocoder    Source = "geocoder"
	SourceRegional    Source = "regional"
	SourcePlaceholder Source = "placeholder"
	SourceCoordinates Source = "coordinates"
)

// Result is the outcome of a resolution. When Address is not nil, Point holds
// the coordinates that produced it.
type Result struct {
	Point   spatial.Point `json:"point"`
	Address *Address      `json:"address,omitempty"`
	Source  Source        `json:"source"`
	FixTime time.Time     `json:"fix_time"`
}

// DefaultGeocodeTimeout bounds a reverse geocoding call.
const DefaultGeocodeTimeout = 10 * time.Second

// Resolver orchestrates permission, position and address lookup.
type Resolver struct {
	Permissions    PermissionRequester
	Sensor         Sensor
	Geocoder       Geocoder
	FixOptions     FixOptions
	GeocodeTimeout time.Duration
	Metrics        *metrics.Metrics

	now func() time.Time
}

// NewResolver returns a resolver with the default fix options and geocode
// timeout. A nil geocoder sends every resolution to the regional fallback.
func NewResolver(perms PermissionRequester, sensor Sensor, geocoder Geocoder) *Resolver {
	if geocoder == nil {
		geocoder = NoopGeocoder{}
	}

	return &Resolver{
		Permissions:    perms,
		Sensor:         sensor,
		Geocoder:       geocoder,
		FixOptions:     DefaultFixOptions,
		GeocodeTimeout: DefaultGeocodeTimeout,
		now:            time.Now,
	}
}

func (r *Resolver) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}

	return r.now()
}

// Resolve runs the full pipeline. The error is either a *PermissionError or
// a *FixError; geocoding problems never surface, they degrade the address.
func (r *Resolver) Resolve(ctx context.Context) (*Result, error) {
	start := r.clock()

	fix, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Point: fix.Point, FixTime: fix.Time}

	addr, err := r.geocode(ctx, fix.Point)
	if err == nil {
		res.Address, res.Source = &addr, SourceGeocoder
	} else {
		reason := geocodeFailureReason(err)

		r.Metrics.GeocoderError(reason)
		log.WithFields(log.Fields{
			"lat":    fix.Point.Lat,
			"lon":    fix.Point.Lng,
			"reason": reason,
			"error":  err,
		}).Warn("reverse geocoding failed, using regional fallback")

		addr, ok := RegionalAddress(fix.Point)
		res.Address, res.Source = &addr, SourceRegional

		if !ok {
			res.Source = SourcePlaceholder
		}
	}

	r.Metrics.Resolved(string(res.Source), r.clock().Sub(start))

	return res, nil
}

// ResolveCoordinates stops after acquiring the fix. The result has no address.
func (r *Resolver) ResolveCoordinates(ctx context.Context) (*Result, error) {
	start := r.clock()

	fix, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	r.Metrics.Resolved(string(SourceCoordinates), r.clock().Sub(start))

	return &Result{Point: fix.Point, Source: SourceCoordinates, FixTime: fix.Time}, nil
}

func (r *Resolver) geocode(ctx context.Context, p spatial.Point) (Address, error) {
	if !p.Valid() {
		return Address{}, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "coordenadas inválidas"}
	}

	if r.GeocodeTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.GeocodeTimeout)
		defer cancel()
	}

	return r.Geocoder.ReverseGeocode(ctx, p.Lat, p.Lng)
}

// geocodeFailureReason names the kind of a geocoder failure, also for
// errors that did not come typed from a provider.
func geocodeFailureReason(err error) string {
	switch {
	case IsTimeoutError(err):
		return ErrorTypeTimeout.String()
	case IsRateLimitError(err):
		return ErrorTypeRateLimit.String()
	case IsQuotaExceededError(err):
		return ErrorTypeQuotaExceeded.String()
	default:
		return GeocodingErrorType(err).String()
	}
}

// acquire checks the permission and gets a position.
func (r *Resolver) acquire(ctx context.Context) (Fix, error) {
	status, err := r.Permissions.RequestPermission(ctx)
	if err != nil {
		// a failed prompt counts as a denial
		log.WithError(err).Warn("location permission request failed")

		status = PermissionDenied
	}

	if status != PermissionGranted {
		r.Metrics.ResolutionFailed("permission_denied")

		return Fix{}, &PermissionError{Status: status}
	}

	fix, err := r.currentFix(ctx)
	if err != nil {
		r.Metrics.ResolutionFailed("fix")

		return Fix{}, &FixError{Err: err}
	}

	if !fix.Point.Valid() {
		log.WithField("point", fix.Point.String()).Warn("sensor reported invalid coordinates")
	}

	return fix, nil
}

func (r *Resolver) currentFix(ctx context.Context) (Fix, error) {
	opts := r.FixOptions

	fixCtx := ctx

	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		fixCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	fix, err := r.Sensor.CurrentFix(fixCtx, opts)
	if err == nil {
		return fix, nil
	}

	// only our own deadline is a sensor timeout, not the caller giving up
	if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return Fix{}, err
	}

	err = fmt.Errorf("%w after %v", ErrSensorTimeout, opts.Timeout)

	if last, ok := r.lastKnownFix(opts); ok {
		log.WithFields(log.Fields{
			"age": r.clock().Sub(last.Time).String(),
		}).Info("sensor timed out, using last known fix")

		return last, nil
	}

	return Fix{}, err
}

func (r *Resolver) lastKnownFix(opts FixOptions) (Fix, bool) {
	lk, ok := r.Sensor.(LastKnownSensor)
	if !ok {
		return Fix{}, false
	}

	last, ok := lk.LastKnownFix()
	if !ok || last.Time.IsZero() {
		return Fix{}, false
	}

	if opts.MaxFixAge > 0 && r.clock().Sub(last.Time) > opts.MaxFixAge {
		return Fix{}, false
	}

	return last, true
}

// FormatCoordinates renders a point for callers that only report raw
// coordinates.
func FormatCoordinates(p spatial.Point) string {
	return fmt.Sprintf("Lat %.5f, Lng %.5f", p.Lat, p.Lng)
}
