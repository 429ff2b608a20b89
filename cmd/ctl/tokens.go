package main

import (
	"fmt"

	"github.com/neutec/secondhand-backend/internal/scheduler"
	"github.com/spf13/cobra"
)

func newTokensCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Password reset token housekeeping",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired reset tokens now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.tokenStore()
			if err != nil {
				return err
			}
			deleted, err := scheduler.NewTokenCleanupScheduler(store, "").RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %d expired tokens\n", deleted)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count reset tokens by state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.tokenStore()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "total: %d\nactive: %d\nexpired: %d\nused: %d\n",
				stats.Total, stats.Active, stats.Expired, stats.Used)
			return nil
		},
	})

	return cmd
}
