package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/neutec/secondhand-backend/internal/app/model"
	"github.com/neutec/secondhand-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAdminService_ExportAuditLogs(t *testing.T) {
	testDB := setupTestDB(t)
	auditRepo := repository.NewAdminLogRepository(testDB)
	clock := newFakeClock()
	tokens := repository.NewMemoryPasswordResetRepository(clock.Now)
	svc := NewAdminService(auditRepo, tokens)
	ctx := context.Background()

	for i, action := range []string{model.ActionToggleMaintenance, model.ActionSetMaintenanceMessage, model.ActionToggleMaintenance} {
		require.NoError(t, auditRepo.Create(ctx, &model.AdminLog{
			AdminID:   1,
			Action:    action,
			NewValue:  "true",
			IPAddress: "10.0.0.1",
			CreatedAt: clock.Now().Add(time.Duration(i) * time.Minute),
		}))
	}

	var buf bytes.Buffer
	n, err := svc.ExportAuditLogs(ctx, repository.AdminLogFilter{Action: model.ActionToggleMaintenance, PageSize: 1}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Audit Log")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Action", rows[0][3])
	assert.Equal(t, model.ActionToggleMaintenance, rows[1][3])
	assert.Equal(t, "10.0.0.1", rows[1][6])
}

func TestAdminService_ListAuditLogs_DefaultsPaging(t *testing.T) {
	testDB := setupTestDB(t)
	auditRepo := repository.NewAdminLogRepository(testDB)
	svc := NewAdminService(auditRepo, repository.NewMemoryPasswordResetRepository(nil))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, auditRepo.Create(ctx, &model.AdminLog{Action: model.ActionSetMaintenance}))
	}

	logs, total, err := svc.ListAuditLogs(ctx, repository.AdminLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, logs, 20)
}

func TestAdminService_ResetTokenStats(t *testing.T) {
	clock := newFakeClock()
	tokens := repository.NewMemoryPasswordResetRepository(clock.Now)
	svc := NewAdminService(nil, tokens)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, "a", "a@example.com", clock.Now().Add(time.Hour)))
	require.NoError(t, tokens.Put(ctx, "b", "b@example.com", clock.Now().Add(-time.Minute)))
	require.NoError(t, tokens.Put(ctx, "c", "c@example.com", clock.Now().Add(time.Hour)))
	require.NoError(t, tokens.MarkUsed(ctx, "c"))

	stats, err := svc.ResetTokenStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.Expired)
	assert.Equal(t, int64(1), stats.Used)
}
