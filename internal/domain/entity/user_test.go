package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUser_DefaultState(t *testing.T) {
	u := NewUser(1, 10)
	require.Equal(t, StateMainMenu, u.State)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, int64(10), u.ChatID)
	require.Zero(t, u.EcoPoints)
}

func TestUser_AddScan(t *testing.T) {
	u := NewUser(1, 10)
	u.AddScan(10)
	u.AddScan(0)
	require.Equal(t, 2, u.Scans)
	require.Equal(t, 10, u.EcoPoints)
}
