package auth

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLoginIssuesIndependentTokens(t *testing.T) {
	ctx := context.Background()
	a := New(Config{Username: "coach", Password: "s3cret"}, NewMemoryTokenStore())

	_, err := a.Login(ctx, "coach", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "other", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	t1, err := a.Login(ctx, "coach", "s3cret")
	require.NoError(t, err)
	t2, err := a.Login(ctx, " coach ", "s3cret")
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)
	require.True(t, a.Validate(ctx, t1))
	require.True(t, a.Validate(ctx, t2))

	require.NoError(t, a.Logout(ctx, t1))
	require.False(t, a.Validate(ctx, t1))
	require.True(t, a.Validate(ctx, t2))
	require.False(t, a.Validate(ctx, ""))
	require.False(t, a.Validate(ctx, "made-up"))
}

func TestLoginDisabledWithoutCredentials(t *testing.T) {
	a := New(Config{}, NewMemoryTokenStore())
	require.False(t, a.Enabled())
	_, err := a.Login(context.Background(), "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemoryTokenExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	a := New(Config{Username: "coach", Password: "pw", TokenTTL: time.Hour}, store)
	tok, err := a.Login(ctx, "coach", "pw")
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	require.True(t, a.Validate(ctx, tok))
	now = now.Add(time.Minute)
	require.False(t, a.Validate(ctx, tok))
}

func TestRedisTokenStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	a := New(Config{Username: "coach", Password: "pw", TokenTTL: 30 * time.Minute}, NewRedisTokenStore(rdb))
	tok, err := a.Login(ctx, "coach", "pw")
	require.NoError(t, err)
	require.True(t, a.Validate(ctx, tok))
	require.Equal(t, 30*time.Minute, mr.TTL(redisTokenPrefix+tok))

	mr.FastForward(31 * time.Minute)
	require.False(t, a.Validate(ctx, tok))

	tok, err = a.Login(ctx, "coach", "pw")
	require.NoError(t, err)
	require.NoError(t, a.Logout(ctx, tok))
	require.False(t, a.Validate(ctx, tok))
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", BearerToken("Bearer abc"))
	require.Equal(t, "abc", BearerToken("  bearer   abc "))
	require.Equal(t, "", BearerToken("Basic abc"))
	require.Equal(t, "", BearerToken("Bearer"))
	require.Equal(t, "", BearerToken(""))
}
