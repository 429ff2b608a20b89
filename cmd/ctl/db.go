package main

import (
	"fmt"

	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/db"
	"github.com/spf13/cobra"
)

func newDBCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Schema maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure-tables",
		Short: "Create missing tables and seed default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := a.database()
			if err != nil {
				return err
			}
			if err := repository.EnsurePasswordResetTable(cmd.Context(), gdb, a.selfHealPolicy()); err != nil {
				return err
			}
			if err := db.MigrateDB(gdb); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "tables ready")
			return nil
		},
	})

	return cmd
}
