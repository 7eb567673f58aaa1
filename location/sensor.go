// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jcodagnone/denuncia/spatial"
)

// PermissionStatus is the answer to a location permission request.
type PermissionStatus int

const (
	PermissionGranted PermissionStatus = iota
	PermissionDenied
	PermissionDeniedPermanently
)

func (s PermissionStatus) String() string {
	switch s {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	case PermissionDeniedPermanently:
		return "denied-permanently"
	default:
		return "unknown"
	}
}

// PermissionRequester asks the user for access to their location.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) (PermissionStatus, error)
}

// FixOptions tune a position request.
type FixOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaxFixAge          time.Duration
}

// DefaultFixOptions match what the mobile client asks the device for.
var DefaultFixOptions = FixOptions{
	EnableHighAccuracy: true,
	Timeout:            15 * time.Second,
	MaxFixAge:          10 * time.Second,
}

// Fix is a position reported by the sensor.
type Fix struct {
	Point spatial.Point
	Time  time.Time
}

// Sensor reports the device position. CurrentFix must return once ctx is
// done and release whatever subscription it holds.
type Sensor interface {
	CurrentFix(ctx context.Context, opts FixOptions) (Fix, error)
}

// LastKnownSensor is implemented by sensors that remember their last fix.
type LastKnownSensor interface {
	LastKnownFix() (Fix, bool)
}

// GrantedPermissions always grants access. It is used when the caller
// already holds the coordinates (CLI flags, a device posting its fix).
type GrantedPermissions struct{}

// RequestPermission implements PermissionRequester.
func (GrantedPermissions) RequestPermission(context.Context) (PermissionStatus, error) {
	return PermissionGranted, nil
}

// StaticPermissions answers every request with Status.
type StaticPermissions struct {
	Status PermissionStatus
}

// RequestPermission implements PermissionRequester.
func (p StaticPermissions) RequestPermission(context.Context) (PermissionStatus, error) {
	return p.Status, nil
}

// ErrNoFix is returned by a StaticSensor without a position.
var ErrNoFix = errors.New("sem posição disponível")

// StaticSensor reports a position supplied by the caller.
type StaticSensor struct {
	mu  sync.Mutex
	fix Fix
	set bool
	now func() time.Time
}

// NewStaticSensor returns a sensor reporting p, stamped at the time of each
// request.
func NewStaticSensor(p spatial.Point) *StaticSensor {
	return &StaticSensor{fix: Fix{Point: p}, set: true, now: time.Now}
}

// Update replaces the reported position.
func (s *StaticSensor) Update(fix Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fix, s.set = fix, true
}

// CurrentFix implements Sensor.
func (s *StaticSensor) CurrentFix(ctx context.Context, _ FixOptions) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set {
		return Fix{}, ErrNoFix
	}

	fix := s.fix
	if fix.Time.IsZero() && s.now != nil {
		fix.Time = s.now()
	}

	return fix, nil
}

// LastKnownFix implements LastKnownSensor.
func (s *StaticSensor) LastKnownFix() (Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set || s.fix.Time.IsZero() {
		return Fix{}, false
	}

	return s.fix, true
}
