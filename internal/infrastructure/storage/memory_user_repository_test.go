package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"eco-scan/internal/domain/entity"
)

func TestMemoryUserRepository_GetCreatesUser(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user, err := repo.Get(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	// Изменения копии не видны без Save.
	user.SetState(entity.StateProcessing)
	again, err := repo.Get(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, again.State)

	require.NoError(t, repo.Save(ctx, user))
	again, err = repo.Get(ctx, 7, 70)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, again.State)
}

func TestMemoryUserRepository_RecordScan(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	_, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)

	require.NoError(t, repo.RecordScan(ctx, 1, 10))
	require.NoError(t, repo.RecordScan(ctx, 1, 8))
	// Неизвестный пользователь молча игнорируется.
	require.NoError(t, repo.RecordScan(ctx, 99, 5))

	user, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 18, user.EcoPoints)
	require.Equal(t, 2, user.Scans)
}
