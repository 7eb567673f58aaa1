// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/denuncia/location"
	"github.com/jcodagnone/denuncia/spatial"
)

var (
	locateLat        float64
	locateLon        float64
	locateCoordsOnly bool
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Resolve an address for a position",
	Long: `Runs the location pipeline with --lat/--lon as the device fix and prints
the result. Without a usable geocoder answer the address comes from the
regional fallback.

$ denuncia locate --lat -23.5505 --lon -46.6333 --geocoder none
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p := spatial.Point{Lat: locateLat, Lng: locateLon}
		if !p.Valid() {
			return fmt.Errorf("invalid coordinates %s", p)
		}

		g, err := newGeocoder(ctx)
		if err != nil {
			return err
		}

		r := newResolver(location.GrantedPermissions{}, location.NewStaticSensor(p), g, nil)

		var res *location.Result
		if locateCoordsOnly {
			res, err = r.ResolveCoordinates(ctx)
		} else {
			res, err = r.Resolve(ctx)
		}

		if err != nil {
			return err
		}

		if res.Address == nil {
			fmt.Println(location.FormatCoordinates(res.Point))

			return nil
		}

		return printJSON(res)
	},
}

func init() {
	rootCmd.AddCommand(locateCmd)
	locateCmd.Flags().Float64Var(&locateLat, "lat", 0, "Latitude")
	locateCmd.Flags().Float64Var(&locateLon, "lon", 0, "Longitude")
	locateCmd.Flags().BoolVar(&locateCoordsOnly, "coords-only", false, "Apenas as coordenadas, sem endereço")
	_ = locateCmd.MarkFlagRequired("lat")
	_ = locateCmd.MarkFlagRequired("lon")
}
