// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/uber/h3-go/v4"

	"github.com/jcodagnone/denuncia/spatial"
)

// CacheResolution is the H3 resolution used for cache keys (cells of
// roughly 15.000 m²).
const CacheResolution = 10

// DefaultCacheMaxDistance is how far, in meters, a fix may be from the
// lookup that filled its cell and still reuse the address.
const DefaultCacheMaxDistance = 100.0

type cacheEntry struct {
	addr    Address
	point   spatial.Point
	expires time.Time
}

// CachedGeocoder remembers successful lookups per H3 cell, so repeated fixes
// from the same block do not hit the provider. Failures are not cached.
type CachedGeocoder struct {
	// MaxDistance bounds the meters between a fix and the cached lookup of
	// its cell. Farther fixes go to the provider and replace the entry.
	MaxDistance float64

	next Geocoder
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[h3.Cell]cacheEntry
}

// NewCachedGeocoder wraps next with a cache whose entries live for ttl.
func NewCachedGeocoder(next Geocoder, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		MaxDistance: DefaultCacheMaxDistance,
		next:        next,
		ttl:         ttl,
		now:         time.Now,
		entries:     make(map[h3.Cell]cacheEntry),
	}
}

// ReverseGeocode implements Geocoder.
func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (Address, error) {
	p := spatial.Point{Lat: lat, Lng: lon}

	cell, err := p.Cell(CacheResolution)
	if err != nil {
		return Address{}, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "coordenadas inválidas", Err: err}
	}

	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[cell]
	c.mu.Unlock()

	if ok && now.Before(entry.expires) {
		dist := p.HaversineDistance(&entry.point)
		if c.MaxDistance <= 0 || dist <= c.MaxDistance {
			log.WithField("cell", cell.String()).Debug("geocoder cache hit")

			return entry.addr, nil
		}

		log.WithFields(log.Fields{"cell": cell.String(), "meters": dist}).Debug("geocoder cache entry too far")
	}

	addr, err := c.next.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return Address{}, err
	}

	c.mu.Lock()
	c.entries[cell] = cacheEntry{addr: addr, point: p, expires: now.Add(c.ttl)}
	c.evictExpired(now)
	c.mu.Unlock()

	return addr, nil
}

// Len returns the number of cached cells.
func (c *CachedGeocoder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// caller holds mu.
func (c *CachedGeocoder) evictExpired(now time.Time) {
	for cell, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, cell)
		}
	}
}
