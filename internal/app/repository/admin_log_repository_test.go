package repository

import (
	"context"
	"testing"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminLogRepository_CreateAndList(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := NewAdminLogRepository(testDB)
	ctx := context.Background()

	entries := []*model.AdminLog{
		{AdminID: 1, Action: model.ActionToggleMaintenance, NewValue: "true", IPAddress: "10.0.0.1"},
		{AdminID: 1, Action: model.ActionToggleMaintenance, NewValue: "false", IPAddress: "10.0.0.1"},
		{AdminID: 2, Action: model.ActionSetMaintenanceMessage, NewValue: "back soon"},
	}
	for _, entry := range entries {
		require.NoError(t, repo.Create(ctx, entry))
	}

	logs, total, err := repo.List(ctx, AdminLogFilter{Action: model.ActionToggleMaintenance})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 2)
	assert.Equal(t, "false", logs[0].NewValue)

	logs, total, err = repo.List(ctx, AdminLogFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 1)

	count, err := repo.Count(ctx, model.ActionSetMaintenanceMessage)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
