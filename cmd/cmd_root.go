// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	alog "github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})

	alog.SetHandler(text.New(os.Stderr))
	alog.SetLevel(alog.InfoLevel)
}

var rootCmd = &cobra.Command{
	Use:   "denuncia",
	Short: "denúncias de problemas urbanos",
	Long: `
denuncia registra denúncias de problemas urbanos (buracos, iluminação, lixo)
com o endereço obtido a partir das coordenadas do dispositivo, permite anexar
uma foto e votar nas denúncias de outros usuários.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading .env: %w", err)
		}

		if err := applyEnvDefaults(cmd); err != nil {
			return err
		}

		if options.Verbose {
			alog.SetLevel(alog.DebugLevel)
		}

		return nil
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
