package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/db"
	"github.com/neutec/secondhand-backend/pkg/util"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func newUsersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Account seeding",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSeedAdminCommand(a))
	cmd.AddCommand(newImportUsersCommand(a))
	return cmd
}

func newSeedAdminCommand(a *app) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin account if the email is not taken",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}
			gdb, err := a.database()
			if err != nil {
				return err
			}
			user, err := db.SeedAdmin(gdb, email, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "admin %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringVar(&name, "name", "Administrator", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newImportUsersCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import accounts from a spreadsheet (email, name, telegram, role, password)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, skipped, err := readUsersFromXLSX(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "rows to import: %d (skipped %d)\n", len(users), skipped)

			if !yes {
				fmt.Fprint(a.out, "Do you want to proceed with the import? (yes/no): ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.TrimSpace(answer)
				if answer != "yes" && answer != "y" {
					fmt.Fprintln(a.out, "import cancelled")
					return nil
				}
			}

			gdb, err := a.database()
			if err != nil {
				return err
			}
			created, existing, err := importUsers(gdb, users)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created %d, already present %d\n", created, existing)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

type importedUser struct {
	user     model.User
	password string
}

// readUsersFromXLSX reads the first sheet; row 1 is a header.
// Rows without a valid email or a password of at least 6 characters are skipped.
func readUsersFromXLSX(path string) ([]importedUser, int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, 0, errors.New("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, 0, errors.New("no data found in XLSX file")
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var users []importedUser
	seen := make(map[string]bool)
	skipped := 0
	for _, row := range rows[1:] {
		email := strings.ToLower(cell(row, 0))
		password := cell(row, 4)
		if _, err := mail.ParseAddress(email); err != nil || len(password) < 6 || seen[email] {
			skipped++
			continue
		}
		seen[email] = true

		role := model.UserRole(strings.ToLower(cell(row, 3)))
		switch role {
		case model.RoleAdmin, model.RoleModerator:
		default:
			role = model.RoleUser
		}

		users = append(users, importedUser{
			user: model.User{
				Email:    email,
				Name:     cell(row, 1),
				Telegram: cell(row, 2),
				Role:     role,
				Status:   model.StatusActive,
			},
			password: password,
		})
	}
	return users, skipped, nil
}

func importUsers(gdb *gorm.DB, users []importedUser) (created, existing int, err error) {
	repo := repository.NewUserRepository(gdb)
	for _, u := range users {
		if _, err := repo.FindByEmail(u.user.Email); err == nil {
			existing++
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, existing, err
		}

		hash, err := util.HashPassword(u.password)
		if err != nil {
			return created, existing, err
		}
		user := u.user
		user.PasswordHash = hash
		if err := repo.Create(&user); err != nil {
			return created, existing, fmt.Errorf("failed to create %s: %w", user.Email, err)
		}
		created++
	}
	return created, existing, nil
}
