// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the Prometheus collectors of the location and
// denunciation pipelines. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "denuncia"

// Metrics groups every collector. Build it with New.
type Metrics struct {
	resolutions        *prometheus.CounterVec
	resolutionFailures *prometheus.CounterVec
	resolveDuration    prometheus.Histogram
	geocoderErrors     *prometheus.CounterVec
	created            prometheus.Counter
	imageUploads       *prometheus.CounterVec
	votes              *prometheus.CounterVec
	liveSubscribers    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "location",
			Name:      "resolutions_total",
			Help:      "Location resolutions that produced a result, labeled by the source of the address.",
		}, []string{"source"}),
		resolutionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "location",
			Name:      "resolution_failures_total",
			Help:      "Location resolutions that failed, labeled by reason.",
		}, []string{"reason"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "location",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent in a full location resolution.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		geocoderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "location",
			Name:      "geocoder_errors_total",
			Help:      "Reverse geocoding failures, labeled by error type.",
		}, []string{"type"}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "denunciations",
			Name:      "created_total",
			Help:      "Denunciations persisted.",
		}),
		imageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "denunciations",
			Name:      "image_uploads_total",
			Help:      "Image attachments, labeled by result (ok, upload_error, link_error, conflict).",
		}, []string{"result"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "denunciations",
			Name:      "votes_total",
			Help:      "Vote toggles applied, labeled by kind.",
		}, []string{"kind"}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "denunciations",
			Name:      "live_subscribers",
			Help:      "Open live feed subscriptions.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.resolutions,
			m.resolutionFailures,
			m.resolveDuration,
			m.geocoderErrors,
			m.created,
			m.imageUploads,
			m.votes,
			m.liveSubscribers,
		)
	}

	return m
}

// Resolved records a successful resolution.
func (m *Metrics) Resolved(source string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.resolutions.WithLabelValues(source).Inc()
	m.resolveDuration.Observe(elapsed.Seconds())
}

// ResolutionFailed records a resolution that returned an error.
func (m *Metrics) ResolutionFailed(reason string) {
	if m == nil {
		return
	}

	m.resolutionFailures.WithLabelValues(reason).Inc()
}

// GeocoderError records a failed reverse geocoding call.
func (m *Metrics) GeocoderError(errType string) {
	if m == nil {
		return
	}

	m.geocoderErrors.WithLabelValues(errType).Inc()
}

// Created records a persisted denunciation.
func (m *Metrics) Created() {
	if m == nil {
		return
	}

	m.created.Inc()
}

// ImageUpload records the outcome of an image attachment.
func (m *Metrics) ImageUpload(result string) {
	if m == nil {
		return
	}

	m.imageUploads.WithLabelValues(result).Inc()
}

// Vote records an applied vote toggle.
func (m *Metrics) Vote(kind string) {
	if m == nil {
		return
	}

	m.votes.WithLabelValues(kind).Inc()
}

// SubscriberAdded tracks a new live subscription.
func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}

	m.liveSubscribers.Inc()
}

// SubscriberRemoved tracks a released live subscription.
func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}

	m.liveSubscribers.Dec()
}
