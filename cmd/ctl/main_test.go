package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/neutec/secondhand-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	require.NoError(t, db.MigrateDB(testDB))

	out := &bytes.Buffer{}
	return &app{db: testDB, out: out}, out
}

func run(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	out := a.out.(*bytes.Buffer)
	out.Reset()

	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMaintenanceCommands(t *testing.T) {
	a, _ := setupApp(t)

	out, err := run(t, a, "", "maintenance", "status")
	require.NoError(t, err)
	assert.Equal(t, "maintenance: off\n", out)

	out, err = run(t, a, "", "maintenance", "on")
	require.NoError(t, err)
	assert.Contains(t, out, "maintenance: on")

	out, err = run(t, a, "", "maintenance", "message", "Back", "soon")
	require.NoError(t, err)
	assert.Contains(t, out, "message: Back soon")

	out, err = run(t, a, "", "maintenance", "toggle")
	require.NoError(t, err)
	assert.Contains(t, out, "maintenance: off")

	var logs []model.AdminLog
	require.NoError(t, a.db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 3)
	assert.Equal(t, model.ActionSetMaintenance, logs[0].Action)
	assert.Equal(t, uint(0), logs[0].AdminID)
	assert.Equal(t, "cli", logs[0].IPAddress)
}

func TestTokensCommands(t *testing.T) {
	a, _ := setupApp(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.tokens = repository.NewPasswordResetRepository(a.db, repository.PasswordResetOptions{
		Clock: func() time.Time { return now },
	})
	ctx := context.Background()

	require.NoError(t, a.tokens.Put(ctx, "old", "a@example.com", now.Add(-time.Hour)))
	require.NoError(t, a.tokens.Put(ctx, "new", "b@example.com", now.Add(time.Hour)))

	out, err := run(t, a, "", "tokens", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "total: 2")
	assert.Contains(t, out, "expired: 1")

	out, err = run(t, a, "", "tokens", "purge")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1 expired tokens\n", out)
}

func TestDBEnsureTables(t *testing.T) {
	a, _ := setupApp(t)
	require.NoError(t, a.db.Migrator().DropTable(&model.PasswordReset{}))

	out, err := run(t, a, "", "db", "ensure-tables")
	require.NoError(t, err)
	assert.Equal(t, "tables ready\n", out)
	assert.True(t, a.db.Migrator().HasTable(&model.PasswordReset{}))
}

func TestUsersSeedAdmin(t *testing.T) {
	a, _ := setupApp(t)

	out, err := run(t, a, "", "users", "seed-admin", "--email", "ops@example.com", "--password", "secret-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "admin ops@example.com")

	var user model.User
	require.NoError(t, a.db.Where("email = ?", "ops@example.com").First(&user).Error)
	assert.True(t, user.IsAdmin())

	_, err = run(t, a, "", "users", "seed-admin", "--email", "x@example.com", "--password", "123")
	assert.Error(t, err)
}

func writeUsersSheet(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	path := filepath.Join(t.TempDir(), "users.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestUsersImport(t *testing.T) {
	a, _ := setupApp(t)
	require.NoError(t, a.db.Create(&model.User{Email: "existing@example.com", PasswordHash: "x", Name: "Existing"}).Error)

	path := writeUsersSheet(t, [][]interface{}{
		{"email", "name", "telegram", "role", "password"},
		{"Seller@Example.com", "Seller", "@seller", "moderator", "password1"},
		{"existing@example.com", "Existing", "", "", "password2"},
		{"not-an-email", "Broken", "", "", "password3"},
		{"short@example.com", "Short", "", "", "123"},
		{"seller@example.com", "Duplicate", "", "", "password4"},
	})

	out, err := run(t, a, "no\n", "users", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "import cancelled")

	out, err = run(t, a, "", "users", "import", "--yes", path)
	require.NoError(t, err)
	assert.Contains(t, out, "rows to import: 2 (skipped 3)")
	assert.Contains(t, out, "created 1, already present 1")

	var user model.User
	require.NoError(t, a.db.Where("email = ?", "seller@example.com").First(&user).Error)
	assert.Equal(t, model.RoleModerator, user.Role)
	assert.Equal(t, "@seller", user.Telegram)
	assert.True(t, user.IsActive())

	var count int64
	require.NoError(t, a.db.Model(&model.User{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
