package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/internal/store"
)

func TestRecord_AppendsEntryAndLogs(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	u := &models.User{Name: "Org", Email: "org@example.com", Role: models.RoleOrganizer}
	require.NoError(t, mem.CreateUser(ctx, u))

	core, logs := observer.New(zap.InfoLevel)
	entry, err := NewRecorder(zap.New(core)).Record(ctx, mem, ActionEventCreated, u.ID)
	require.NoError(t, err)
	assert.Equal(t, ActionEventCreated, entry.Action)
	assert.Equal(t, u.ID, entry.UserID)
	assert.False(t, entry.CreatedAt.IsZero())

	stored, err := mem.ListAuditLogs(ctx, store.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, *entry, stored[0])

	require.Equal(t, 1, logs.FilterMessage("audit event").Len())
	fields := logs.FilterMessage("audit event").All()[0].ContextMap()
	assert.Equal(t, ActionEventCreated, fields["action"])
	assert.Equal(t, u.ID, fields["user_id"])
}

func TestRecord_UnknownUserWritesNothing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	_, err := NewRecorder(nil).Record(ctx, mem, ActionRegistered, 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)

	stored, err := mem.ListAuditLogs(ctx, store.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

type brokenWriter struct{}

func (brokenWriter) GetUserByID(context.Context, int64) (*models.User, error) {
	return &models.User{ID: 1}, nil
}

func (brokenWriter) CreateAuditLog(context.Context, *models.AuditLog) error {
	return errors.New("disk full")
}

func TestRecord_WriteFailureIsReturned(t *testing.T) {
	_, err := NewRecorder(nil).Record(context.Background(), brokenWriter{}, ActionEventDeleted, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotErrorIs(t, err, ErrUserNotFound)
}
