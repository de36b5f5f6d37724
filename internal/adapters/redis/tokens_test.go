package redisad_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	redisad "hostiq/internal/adapters/redis"
	"hostiq/internal/domain"
)

func TestTokenStore_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s := redisad.New(mr.Addr(), "", 0, "owner")
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.Get(ctx, domain.AccessTokenKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, domain.AccessTokenKey, "a1"))
	require.NoError(t, s.Set(ctx, domain.RefreshTokenKey, "r1"))

	got, err := mr.Get("hostiq:tokens:owner:accessToken")
	require.NoError(t, err)
	require.Equal(t, "a1", got)
	require.Zero(t, mr.TTL("hostiq:tokens:owner:accessToken"))

	v, ok, err := s.Get(ctx, domain.RefreshTokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "r1", v)

	require.NoError(t, s.Delete(ctx, domain.AccessTokenKey))
	require.NoError(t, s.Delete(ctx, domain.AccessTokenKey))
	require.False(t, mr.Exists("hostiq:tokens:owner:accessToken"))
}

func TestTokenStore_ProfilesAreIsolated(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	a := redisad.New(mr.Addr(), "", 0, "a")
	b := redisad.New(mr.Addr(), "", 0, "")
	require.NoError(t, a.Set(ctx, domain.AccessTokenKey, "for-a"))

	_, ok, err := b.Get(ctx, domain.AccessTokenKey)
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, mr.Exists("hostiq:tokens:a:accessToken"))
}

func TestTokenStore_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	s := redisad.New(mr.Addr(), "", 0, "x")
	mr.Close()

	_, _, err := s.Get(context.Background(), domain.AccessTokenKey)
	require.Error(t, err)
}
