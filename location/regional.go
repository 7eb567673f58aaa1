// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"fmt"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/jcodagnone/denuncia/spatial"
)

// Macro regions.
const (
	RegionSul         = "Sul"
	RegionSudeste     = "Sudeste"
	RegionCentroOeste = "Centro-Oeste"
	RegionNordeste    = "Nordeste"
	RegionNorte       = "Norte"
)

// Band is a coarse bounding box of a Brazilian state.
type Band struct {
	UF     string
	Region string
	rect   s2.Rect
}

func newBand(uf, region string, latLo, latHi, lngLo, lngHi float64) Band {
	lo := s2.LatLngFromDegrees(latLo, lngLo)
	hi := s2.LatLngFromDegrees(latHi, lngHi)

	return Band{
		UF:     uf,
		Region: region,
		rect: s2.Rect{
			Lat: r1.Interval{Lo: lo.Lat.Radians(), Hi: hi.Lat.Radians()},
			Lng: s1.Interval{Lo: lo.Lng.Radians(), Hi: hi.Lng.Radians()},
		},
	}
}

// Contains reports whether the band covers the point.
func (b Band) Contains(p spatial.Point) bool {
	return p.Valid() && b.rect.ContainsLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng))
}

// bands are evaluated in order and the first match wins. The boxes overlap,
// so smaller states sit ahead of the large ones that surround them and every
// state capital lands in its own state.
var bands = []Band{
	newBand("RS", RegionSul, -33.75, -27.08, -57.65, -49.69),
	newBand("SC", RegionSul, -29.35, -25.95, -53.84, -48.35),
	newBand("PR", RegionSul, -26.72, -22.52, -54.62, -48.02),
	newBand("SP", RegionSudeste, -25.31, -19.78, -53.11, -44.16),
	newBand("RJ", RegionSudeste, -23.37, -20.76, -44.89, -40.96),
	newBand("ES", RegionSudeste, -21.30, -17.89, -41.88, -39.66),
	newBand("MS", RegionCentroOeste, -24.07, -17.17, -58.17, -50.92),
	newBand("DF", RegionCentroOeste, -16.05, -15.50, -48.29, -47.31),
	newBand("GO", RegionCentroOeste, -19.50, -12.40, -53.25, -45.91),
	newBand("MG", RegionSudeste, -22.92, -14.23, -51.05, -39.86),
	newBand("MT", RegionCentroOeste, -18.04, -7.35, -61.63, -50.22),
	newBand("BA", RegionNordeste, -18.35, -8.53, -46.62, -37.34),
	newBand("SE", RegionNordeste, -11.57, -9.51, -38.25, -36.39),
	newBand("AL", RegionNordeste, -10.50, -8.81, -38.24, -35.15),
	newBand("PE", RegionNordeste, -9.48, -7.27, -41.36, -34.80),
	newBand("PB", RegionNordeste, -8.30, -6.02, -38.77, -34.79),
	newBand("RN", RegionNordeste, -6.98, -4.83, -38.58, -34.97),
	newBand("CE", RegionNordeste, -7.86, -2.78, -41.42, -37.25),
	newBand("TO", RegionNorte, -13.47, -5.17, -50.74, -45.70),
	newBand("PI", RegionNordeste, -10.93, -2.74, -45.99, -40.37),
	newBand("AP", RegionNorte, -1.24, 4.44, -54.88, -49.87),
	newBand("PA", RegionNorte, -9.84, 2.59, -58.90, -46.06),
	newBand("MA", RegionNordeste, -10.26, -1.05, -48.75, -41.80),
	newBand("RO", RegionNorte, -13.69, -7.97, -66.81, -59.77),
	newBand("AC", RegionNorte, -11.15, -7.11, -73.99, -66.62),
	newBand("RR", RegionNorte, -1.58, 5.27, -64.83, -58.89),
	newBand("AM", RegionNorte, -9.82, 2.25, -73.80, -56.10),
}

// Bands returns the regional bands in evaluation order.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)

	return out
}

// FindBand returns the first band covering the point.
func FindBand(p spatial.Point) (Band, bool) {
	for _, b := range bands {
		if b.Contains(p) {
			return b, true
		}
	}

	return Band{}, false
}

// Address returns the coarse address for the band.
func (b Band) Address() Address {
	return Address{
		Street:       fmt.Sprintf("Logradouro não identificado (Região %s)", b.Region),
		Neighborhood: fmt.Sprintf("Bairro não identificado (Região %s)", b.Region),
		City:         fmt.Sprintf("Cidade não identificada (Região %s)", b.Region),
		State:        b.UF,
	}
}

// PlaceholderAddress is used when not even a regional guess is possible.
func PlaceholderAddress() Address {
	return Address{
		Street:       "Logradouro não identificado",
		Neighborhood: UnknownNeighborhood,
		City:         UnknownCity,
		State:        UnknownState,
	}
}

// RegionalAddress derives an address from the coordinates alone. It never
// fails: points outside every band (or invalid ones) get the placeholder
// address and ok set to false.
func RegionalAddress(p spatial.Point) (addr Address, ok bool) {
	b, ok := FindBand(p)
	if !ok {
		return PlaceholderAddress(), false
	}

	return b.Address(), true
}
