package main

import (
	"fmt"
	"strings"

	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/app/service"
	"github.com/spf13/cobra"
)

func (a *app) maintenanceService() (service.MaintenanceService, error) {
	gdb, err := a.database()
	if err != nil {
		return nil, err
	}
	// no websocket hub here; running servers pick the change up on the next request
	return service.NewMaintenanceService(
		repository.NewSettingRepository(gdb),
		repository.NewAdminLogRepository(gdb),
		nil,
	), nil
}

func (a *app) printStatus(status *service.MaintenanceStatus) {
	state := "off"
	if status.Enabled {
		state = "on"
	}
	fmt.Fprintf(a.out, "maintenance: %s\n", state)
	if status.Message != "" {
		fmt.Fprintf(a.out, "message: %s\n", status.Message)
	}
}

func newMaintenanceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Inspect or change the platform-wide maintenance switch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// CLI changes are audited with admin id 0
	actor := service.Actor{IP: "cli"}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether maintenance mode is on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.maintenanceService()
			if err != nil {
				return err
			}
			status, err := svc.GetStatus(cmd.Context())
			if err != nil {
				return err
			}
			a.printStatus(status)
			return nil
		},
	})

	for _, sub := range []struct {
		use     string
		short   string
		enabled bool
	}{
		{use: "on", short: "Turn maintenance mode on", enabled: true},
		{use: "off", short: "Turn maintenance mode off", enabled: false},
	} {
		enabled := sub.enabled
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := a.maintenanceService()
				if err != nil {
					return err
				}
				status, err := svc.SetEnabled(cmd.Context(), actor, enabled)
				if err != nil {
					return err
				}
				a.printStatus(status)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Flip maintenance mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.maintenanceService()
			if err != nil {
				return err
			}
			status, err := svc.Toggle(cmd.Context(), actor)
			if err != nil {
				return err
			}
			a.printStatus(status)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "message [text]",
		Short: "Set the message shown while under maintenance (no text clears it)",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.maintenanceService()
			if err != nil {
				return err
			}
			status, err := svc.SetMessage(cmd.Context(), actor, strings.Join(args, " "))
			if err != nil {
				return err
			}
			a.printStatus(status)
			return nil
		},
	})

	return cmd
}
