package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/telemetry"
)

var Version = "dev"

const serviceName = "storefront"

var (
	configPath string
	cfg        *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront API server and terminal cart client",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			telemetry.InitLogger(os.Stderr, cfg.Log.Level)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(cartCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
