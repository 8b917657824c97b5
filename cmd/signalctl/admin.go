package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/origo/signalcheck/internal/server"
)

func newAdminCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage dashboard accounts",
	}
	cmd.AddCommand(newAdminSetCmd(g))
	return cmd
}

func newAdminSetCmd(g *globals) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create an admin account or reset its password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := g.openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := server.NewAdminDocStore(db).UpsertAdmin(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("saving admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s saved\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
