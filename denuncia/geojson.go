// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package denuncia

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/uber/h3-go/v4"
)

// FeatureCollection maps the records with a point to GeoJSON point
// features. Records without coordinates are left out.
func FeatureCollection(records []*Denunciation) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, d := range records {
		if d.Point == nil || !d.Point.Valid() {
			continue
		}

		f := geojson.NewPointFeature([]float64{d.Point.Lng, d.Point.Lat})
		f.ID = d.ID
		f.SetProperty("title", d.Title)
		f.SetProperty("category", d.Category)
		f.SetProperty("location", d.Location)
		f.SetProperty("status", string(d.Status))
		f.SetProperty("created_at", d.CreatedAt)
		f.SetProperty("likes", len(d.Likes))
		f.SetProperty("dislikes", len(d.Dislikes))

		if d.ImageURL != "" {
			f.SetProperty("image_url", d.ImageURL)
		}

		if d.H3Cell != 0 {
			f.SetProperty("h3", h3.Cell(d.H3Cell).String())
		}

		fc.AddFeature(f)
	}

	return fc
}
