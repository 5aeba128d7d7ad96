package service

import (
	"context"
	"testing"

	"finance-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(db, "audit-key", quietLog)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, AuditEntry{
		AdminID: 1, Method: "DELETE", Path: "/api/income/5", Action: "DELETE /api/income/5", Status: 200, IP: "10.0.0.1",
	}))
	require.NoError(t, svc.Record(ctx, AuditEntry{
		AdminID: 1, Method: "POST", Path: "/api/income/batch", Action: `POST /api/income/batch {"year":2024}`, Status: 200,
	}))

	var raw models.AuditLog
	require.NoError(t, db.First(&raw).Error)
	assert.NotEqual(t, "/api/income/5", raw.PathEnc)

	page, err := svc.List(ctx, LogQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, defaultLogPageSize, page.Size)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "/api/income/batch", page.Items[0].Path)
	assert.Equal(t, "/api/income/5", page.Items[1].Path)

	filtered, err := svc.List(ctx, LogQuery{Query: "batch"})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, "POST", filtered.Items[0].Method)

	_, err = svc.List(ctx, LogQuery{Start: "yesterday"})
	assert.True(t, IsValidation(err))
}
