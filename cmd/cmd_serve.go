// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/denuncia/denuncia"
	"github.com/jcodagnone/denuncia/metrics"
)

var tokenTTL time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if options.JWTSecret == "" {
			return errors.New("--jwt-secret (or DENUNCIA_JWT_SECRET) is required to serve")
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)

		repo, err := openRepository(ctx, m)
		if err != nil {
			return err
		}
		defer repo.DB().Close()

		geocoder, err := newGeocoder(ctx)
		if err != nil {
			return err
		}

		objects, dir, err := newObjectStore(ctx)
		if err != nil {
			return err
		}

		svc := denuncia.NewService(repo, objects, denuncia.ContextAuth{}, m)
		server := denuncia.NewServer(svc, denuncia.ServerOptions{
			Geocoder:       geocoder,
			GeocodeTimeout: options.GeocodeTimeout,
			Tokens:         denuncia.NewTokenIssuer(options.JWTSecret, tokenTTL),
			MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			Metrics:        m,
			MediaDir:       dir,
			MediaPrefix:    options.StorageBaseURL,
		})

		log.Printf("listening on http://%s (geocoder %s)", options.Addr, options.Geocoder)

		if err := server.Run(options.Addr); err != nil {
			return fmt.Errorf("serving: %w", err)
		}

		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id> [name]",
	Short: "Issue a bearer token for the HTTP API",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		if options.JWTSecret == "" {
			return errors.New("--jwt-secret (or DENUNCIA_JWT_SECRET) is required")
		}

		user := &denuncia.User{ID: args[0]}
		if len(args) > 1 {
			user.Name = args[1]
		}

		token, err := denuncia.NewTokenIssuer(options.JWTSecret, tokenTTL).Issue(user)
		if err != nil {
			return err
		}

		fmt.Println(token)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)

	for _, c := range []*cobra.Command{serveCmd, tokenCmd} {
		c.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "Validade dos tokens emitidos")
	}
}
