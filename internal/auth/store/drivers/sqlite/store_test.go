package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreInMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := sqlite.NewStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studybuddy.db")

	s, err := sqlite.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations()) // idempotent
	require.NoError(t, s.Close())

	s, err = sqlite.NewStore(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Accounts().Count(t.Context())
	require.NoError(t, err)
	require.Zero(t, n)
}
