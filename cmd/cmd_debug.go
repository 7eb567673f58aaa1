// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/denuncia/location"
	"github.com/jcodagnone/denuncia/spatial"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

func parseLatLon(line string) (spatial.Point, error) {
	latS, lonS, ok := strings.Cut(line, ",")
	if !ok {
		return spatial.Point{}, fmt.Errorf("expected lat,lon")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil {
		return spatial.Point{}, err
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(lonS), 64)
	if err != nil {
		return spatial.Point{}, err
	}

	return spatial.Point{Lat: lat, Lng: lon}, nil
}

var debugRegiaoCmd = &cobra.Command{
	Use:   "regiao",
	Short: "Interagir com o fallback regional de endereços",
	Long: `Lê uma coordenada "lat,lon" por linha e imprime o endereço aproximado que
o fallback regional atribui a ela.

$ echo -23.5505,-46.6333 | denuncia debug regiao
-23.5505,-46.6333	SP	Logradouro não identificado (Região Sudeste), Bairro não identificado (Região Sudeste), Cidade não identificada (Região Sudeste) - SP
`,
	RunE: func(_ *cobra.Command, _ []string) error {
		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Digite coordenadas lat,lon, uma por linha…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			p, err := parseLatLon(line)
			if err != nil {
				fmt.Printf("%s\t%q\n", line, err)

				continue
			}

			band, ok := location.FindBand(p)
			if !ok {
				fmt.Printf("%s\t-\t%s\n", line, location.PlaceholderAddress().FullAddress())

				continue
			}

			fmt.Printf("%s\t%s\t%s\n", line, band.UF, band.Address().FullAddress())
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugRegiaoCmd)
}
