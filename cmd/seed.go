// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/denuncia/denuncia"
	"github.com/jcodagnone/denuncia/utils/textutils"
)

const seedBatchSize = 100

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.json]",
		Short: "Seeds the database with denunciations from a JSON file (default cmd/testdata/seed.json)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "cmd/testdata/seed.json"
			if len(args) == 1 {
				path = args[0]
			}

			repo, err := openRepository(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer repo.DB().Close()

			return seedDatabase(cmd.Context(), repo, path)
		},
	}
}

func init() {
	rootCmd.AddCommand(newSeedCmd())
}

func readSeedFile(path string) ([]*denuncia.Denunciation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var records []*denuncia.Denunciation
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return records, nil
}

// seedDatabase imports the records of path in batches. Records already
// present are left untouched.
func seedDatabase(ctx context.Context, repo *denuncia.Repository, path string) error {
	records, err := readSeedFile(path)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription("Importing denunciations"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	inserted := 0

	for start := 0; start < len(records); start += seedBatchSize {
		batch := records[start:min(start+seedBatchSize, len(records))]

		n, err := repo.Import(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to import batch at %d: %w", start, err)
		}

		inserted += n

		if bar == nil {
			log.Printf("Imported %d/%d", start+len(batch), len(records))
		} else if err := bar.Add(len(batch)); err != nil {
			return fmt.Errorf("updating progress bar: %w", err)
		}
	}

	fmt.Printf("✅ Seeded %s new denunciations (%s already present)\n",
		textutils.FormatCount(int64(inserted)),
		textutils.FormatCount(int64(len(records)-inserted)))

	return nil
}
