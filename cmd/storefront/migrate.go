package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjod/go_storefront/internal/store/pgstore"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cred := pgCredentials(cfg.Postgres)
			s, err := pgstore.NewStore(cmd.Context(), cred)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())

			if err := s.RunMigrations(cred); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
