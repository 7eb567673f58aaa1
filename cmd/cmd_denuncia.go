// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/denuncia/denuncia"
	"github.com/jcodagnone/denuncia/location"
	"github.com/jcodagnone/denuncia/spatial"
	"github.com/jcodagnone/denuncia/utils/textutils"
)

type cliUser struct {
	id   string
	name string
}

func (u cliUser) auth() denuncia.Auth {
	if u.id == "" {
		return denuncia.NewStaticAuth(nil)
	}

	return denuncia.NewStaticAuth(&denuncia.User{ID: u.id, Name: u.name})
}

var (
	denunciaUser cliUser
	listGeoJSON  bool
	submission   denuncia.Submission
	submitLat    float64
	submitLon    float64
	submitImage  string
)

// withService opens the store and runs fn with a service acting as the
// --user given.
func withService(ctx context.Context, fn func(*denuncia.Service) error) error {
	repo, err := openRepository(ctx, nil)
	if err != nil {
		return err
	}
	defer repo.DB().Close()

	objects, _, err := newObjectStore(ctx)
	if err != nil {
		return err
	}

	return fn(denuncia.NewService(repo, objects, denunciaUser.auth(), nil))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

var denunciasCmd = &cobra.Command{
	Use:     "denuncias",
	Aliases: []string{"d"},
	Short:   "Manage denunciations",
}

var denunciasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List denunciations, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd.Context(), func(svc *denuncia.Service) error {
			if listGeoJSON {
				fc, err := svc.GeoJSON(cmd.Context())
				if err != nil {
					return err
				}

				return printJSON(fc)
			}

			records, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCRIADA\tTÍTULO\tLOCAL\tSTATUS\t👍\t👎")

			for _, d := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
					d.ID,
					d.CreatedAt.Local().Format("2006-01-02 15:04"),
					d.Title,
					d.Location,
					d.Status,
					len(d.Likes),
					len(d.Dislikes),
				)
			}

			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "%s denúncias\n", textutils.FormatCount(int64(len(records))))

			return nil
		})
	},
}

var denunciasSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Create a denunciation",
	Long: `Creates a denunciation. With --lat and --lon the address fields left empty
are filled in from the reverse geocoder (or the regional fallback).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		sub := submission

		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
			p := spatial.Point{Lat: submitLat, Lng: submitLon}
			if !p.Valid() {
				return fmt.Errorf("invalid coordinates %s", p)
			}

			sub.Point = &p

			if err := fillAddress(ctx, &sub); err != nil {
				return err
			}
		}

		return withService(ctx, func(svc *denuncia.Service) error {
			res, err := svc.Submit(ctx, sub, submitImage)
			if err != nil {
				var verr *denuncia.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("%w (%v)", err, verr.Missing)
				}

				return err
			}

			if res.Warning != "" {
				fmt.Fprintf(os.Stderr, "⚠️  %s: %v\n", res.Warning, res.ImageErr)
			}

			return printJSON(res)
		})
	},
}

// fillAddress completes the empty address fields of sub from its point.
func fillAddress(ctx context.Context, sub *denuncia.Submission) error {
	g, err := newGeocoder(ctx)
	if err != nil {
		return err
	}

	res, err := newResolver(location.GrantedPermissions{}, location.NewStaticSensor(*sub.Point), g, nil).Resolve(ctx)
	if err != nil {
		return err
	}

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}

	fill(&sub.Address.Street, res.Address.Street)
	fill(&sub.Address.Neighborhood, res.Address.Neighborhood)
	fill(&sub.Address.City, res.Address.City)
	fill(&sub.Address.State, res.Address.State)

	fmt.Fprintf(os.Stderr, "📍 %s (%s)\n", sub.Address.FullAddress(), res.Source)

	return nil
}

var denunciasAttachCmd = &cobra.Command{
	Use:   "attach <id> <image>",
	Short: "Upload an image and link it to a denunciation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *denuncia.Service) error {
			url, err := svc.AttachImage(cmd.Context(), args[0], args[1])
			if err != nil {
				var linkErr *denuncia.LinkError
				if errors.As(err, &linkErr) {
					return fmt.Errorf("%w; retry with: denuncia denuncias link %s %s", err, args[0], linkErr.URL)
				}

				return err
			}

			fmt.Println(url)

			return nil
		})
	},
}

var denunciasLinkCmd = &cobra.Command{
	Use:   "link <id> <url>",
	Short: "Link an already uploaded image to a denunciation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *denuncia.Service) error {
			return svc.LinkImage(cmd.Context(), args[0], args[1])
		})
	},
}

var denunciasVoteCmd = &cobra.Command{
	Use:       "vote <id> like|dislike",
	Short:     "Toggle a like or dislike as --user",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(denuncia.VoteLike), string(denuncia.VoteDislike)},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := denuncia.ParseVoteKind(args[1])
		if err != nil {
			return err
		}

		return withService(cmd.Context(), func(svc *denuncia.Service) error {
			res, err := svc.Vote(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}

			return printJSON(res)
		})
	},
}

func init() {
	rootCmd.AddCommand(denunciasCmd)
	denunciasCmd.AddCommand(denunciasListCmd, denunciasSubmitCmd, denunciasAttachCmd, denunciasLinkCmd, denunciasVoteCmd)

	denunciasCmd.PersistentFlags().StringVar(&denunciaUser.id, "user", "", "Id do usuário autenticado")
	denunciasCmd.PersistentFlags().StringVar(&denunciaUser.name, "user-name", "", "Nome do usuário autenticado")

	denunciasListCmd.Flags().BoolVar(&listGeoJSON, "geojson", false, "Imprime uma FeatureCollection GeoJSON")

	f := denunciasSubmitCmd.Flags()
	f.StringVar(&submission.Category, "category", "", "Categoria (buraco, poste_sem_luz, ..., outro)")
	f.StringVar(&submission.CustomCategory, "custom-category", "", "Descrição da categoria quando outro")
	f.StringVar(&submission.Description, "description", "", "Descrição do problema")
	f.StringVar(&submission.Address.Street, "street", "", "Rua")
	f.StringVar(&submission.Address.Neighborhood, "neighborhood", "", "Bairro")
	f.StringVar(&submission.Address.City, "city", "", "Cidade")
	f.StringVar(&submission.Address.State, "state", "", "Estado")
	f.BoolVar(&submission.IsAnonymous, "anonymous", false, "Não mostrar o nome do autor")
	f.Float64Var(&submitLat, "lat", 0, "Latitude")
	f.Float64Var(&submitLon, "lon", 0, "Longitude")
	f.StringVar(&submitImage, "image", "", "Imagem a anexar")
}
