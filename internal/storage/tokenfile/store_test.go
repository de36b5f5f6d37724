package tokenfile_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"hostiq/internal/domain"
	"hostiq/internal/storage/tokenfile"
)

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")

	s, err := tokenfile.New(path, "owner")
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, domain.AccessTokenKey)
	require.NoError(t, err)
	require.False(t, ok, "missing file reads as empty")

	require.NoError(t, s.Set(ctx, domain.AccessTokenKey, "a1"))
	require.NoError(t, s.Set(ctx, domain.RefreshTokenKey, "r1"))

	again, err := tokenfile.New(path, "owner")
	require.NoError(t, err)
	v, ok, err := again.Get(ctx, domain.RefreshTokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "r1", v)

	if runtime.GOOS != "windows" {
		st, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), st.Mode().Perm())
	}
}

func TestStore_DeleteAndProfiles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	owner, _ := tokenfile.New(path, "owner")
	cleaner, _ := tokenfile.New(path, "cleaner")

	require.NoError(t, owner.Set(ctx, domain.AccessTokenKey, "o"))
	require.NoError(t, cleaner.Set(ctx, domain.AccessTokenKey, "c"))

	require.NoError(t, owner.Delete(ctx, domain.AccessTokenKey))
	require.NoError(t, owner.Delete(ctx, domain.AccessTokenKey))

	_, ok, _ := owner.Get(ctx, domain.AccessTokenKey)
	require.False(t, ok)
	v, ok, _ := cleaner.Get(ctx, domain.AccessTokenKey)
	require.True(t, ok)
	require.Equal(t, "c", v)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, _ := tokenfile.New(path, "")
	_, _, err := s.Get(context.Background(), domain.AccessTokenKey)
	require.Error(t, err)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := tokenfile.New("", "x")
	require.Error(t, err)
}
