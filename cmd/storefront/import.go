package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjod/go_storefront/internal/catalog"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Seed the configured store with the starter catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			res, err := catalog.NewImporter(st).Import(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", res.Created, res.Skipped)
			return nil
		},
	}
}
