package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlotRepository_ReadWrite(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSlotRepository(db)
	ctx := context.Background()

	_, ok, err := repo.Read(ctx, "autosave")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Write(ctx, "autosave", []byte(`{"a":1}`)))
	require.NoError(t, repo.Write(ctx, "autosave", []byte(`{"a":2}`)))

	value, ok, err := repo.Read(ctx, "autosave")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"a":2}`, string(value))
}
