// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	alog "github.com/apex/log"
	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jcodagnone/denuncia/denuncia"
	"github.com/jcodagnone/denuncia/location"
	"github.com/jcodagnone/denuncia/metrics"
	"github.com/jcodagnone/denuncia/utils/httputils"
)

// Options shared by every command.
type Options struct {
	DbPath         string
	Addr           string
	Geocoder       string
	NominatimURL   string
	GoogleAPIKey   string
	GoogleProject  string
	GeocodeTimeout time.Duration
	GeocodeCache   time.Duration
	FixTimeout     time.Duration
	FixMaxAge      time.Duration
	StorageDir     string
	StorageBaseURL string
	GCSBucket      string
	JWTSecret      string
	HTTPTrace      bool
	Verbose        bool
}

var options Options

// envDefaults maps flag names to the environment variables that provide
// their value when the flag is not given.
var envDefaults = map[string]string{
	"db-path":          "DENUNCIA_DB_PATH",
	"addr":             "DENUNCIA_ADDR",
	"geocoder":         "DENUNCIA_GEOCODER",
	"nominatim-url":    "NOMINATIM_URL",
	"google-maps-key":  "GOOGLE_MAPS_API_KEY",
	"google-project":   "GOOGLE_CLOUD_PROJECT",
	"storage-dir":      "DENUNCIA_STORAGE_DIR",
	"storage-base-url": "DENUNCIA_STORAGE_BASE_URL",
	"gcs-bucket":       "DENUNCIA_GCS_BUCKET",
	"jwt-secret":       "DENUNCIA_JWT_SECRET",
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&options.DbPath, "db-path", "db", "Directório base onde armazenar o estado")
	flags.StringVar(&options.Addr, "addr", "localhost:8080", "Endereço do servidor HTTP")
	flags.StringVar(&options.Geocoder, "geocoder", "nominatim", "Serviço de geocodificação reversa: nominatim, google ou none")
	flags.StringVar(&options.NominatimURL, "nominatim-url", location.NominatimBaseURL, "URL base do Nominatim")
	flags.StringVar(&options.GoogleAPIKey, "google-maps-key", "", "Chave da API do Google Maps; vazia busca pelas credenciais padrão")
	flags.StringVar(&options.GoogleProject, "google-project", "", "Projeto do Google Cloud onde buscar a chave")
	flags.DurationVar(&options.GeocodeTimeout, "geocode-timeout", location.DefaultGeocodeTimeout, "Tempo máximo de uma geocodificação")
	flags.DurationVar(&options.GeocodeCache, "geocode-cache-ttl", time.Hour, "Validade do cache de endereços; 0 desativa")
	flags.DurationVar(&options.FixTimeout, "fix-timeout", location.DefaultFixOptions.Timeout, "Tempo máximo para obter a posição")
	flags.DurationVar(&options.FixMaxAge, "fix-max-age", location.DefaultFixOptions.MaxFixAge, "Idade máxima de uma posição anterior")
	flags.StringVar(&options.StorageDir, "storage-dir", "", "Diretório das imagens; padrão <db-path>/media")
	flags.StringVar(&options.StorageBaseURL, "storage-base-url", "/media", "URL base pública das imagens locais")
	flags.StringVar(&options.GCSBucket, "gcs-bucket", "", "Bucket do Cloud Storage para as imagens")
	flags.StringVar(&options.JWTSecret, "jwt-secret", "", "Segredo dos tokens de autenticação")
	flags.BoolVar(&options.HTTPTrace, "http-trace", false, "Mostra as requisições HTTP aos geocodificadores")
	flags.BoolVarP(&options.Verbose, "verbose", "v", false, "Mensagens de depuração")
}

// applyEnvDefaults sets every root flag left unset from its environment
// variable.
func applyEnvDefaults(cmd *cobra.Command) error {
	var err error

	cmd.Root().PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key, ok := envDefaults[f.Name]
		if !ok || f.Changed || err != nil {
			return
		}

		if v, ok := os.LookupEnv(key); ok && v != "" {
			if setErr := f.Value.Set(v); setErr != nil {
				err = fmt.Errorf("invalid %s=%q: %w", key, v, setErr)
			}
		}
	})

	return err
}

// openRepository opens (creating when needed) the DuckDB database.
func openRepository(ctx context.Context, m *metrics.Metrics) (*denuncia.Repository, error) {
	if err := os.MkdirAll(options.DbPath, 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", filepath.Join(options.DbPath, "denuncia.duckdb"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	repo := denuncia.NewRepository(db, m)
	if err := repo.CreateSchema(ctx); err != nil {
		db.Close()

		return nil, err
	}

	return repo, nil
}

func userAgent() string {
	return fmt.Sprintf("denuncia/%s (+https://github.com/jcodagnone/denuncia)", Version)
}

// newGeocoder builds the configured reverse geocoder. A nil geocoder means
// every resolution uses the regional fallback.
func newGeocoder(ctx context.Context) (location.Geocoder, error) {
	var trace io.Writer
	if options.HTTPTrace {
		trace = os.Stderr
	}

	client := httputils.NewClient(userAgent(), options.GeocodeTimeout, trace)

	var g location.Geocoder

	switch strings.ToLower(options.Geocoder) {
	case "", "none":
		return nil, nil
	case "nominatim":
		g = location.NewNominatimGeocoder(options.NominatimURL, client)
	case "google":
		key := options.GoogleAPIKey
		if key == "" {
			var err error

			alog.Info("no Google Maps key given, looking it up with default credentials")

			key, err = location.APIKeyFromADC(ctx, options.GoogleProject)
			if err != nil {
				return nil, fmt.Errorf("google maps key: %w", err)
			}
		}

		g = location.NewGoogleMapsGeocoder(key, "", client)
	default:
		return nil, fmt.Errorf("unknown geocoder %q", options.Geocoder)
	}

	if options.GeocodeCache > 0 {
		g = location.NewCachedGeocoder(g, options.GeocodeCache)
	}

	return g, nil
}

func mediaDir() string {
	if options.StorageDir != "" {
		return options.StorageDir
	}

	return filepath.Join(options.DbPath, "media")
}

// newObjectStore returns the image store and, for local storage, the
// directory the HTTP server must expose.
func newObjectStore(ctx context.Context) (denuncia.ObjectStore, string, error) {
	if options.GCSBucket != "" {
		store, err := denuncia.NewGCSStore(ctx, options.GCSBucket)
		if err != nil {
			return nil, "", err
		}

		return store, "", nil
	}

	dir := mediaDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, "", fmt.Errorf("creating media directory: %w", err)
	}

	return denuncia.NewFileStore(dir, options.StorageBaseURL), dir, nil
}

func newResolver(perms location.PermissionRequester, sensor location.Sensor, g location.Geocoder, m *metrics.Metrics) *location.Resolver {
	r := location.NewResolver(perms, sensor, g)
	r.GeocodeTimeout = options.GeocodeTimeout
	r.FixOptions.Timeout = options.FixTimeout
	r.FixOptions.MaxFixAge = options.FixMaxAge
	r.Metrics = m

	return r
}
