package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-tracker/internal/domain"
)

func newTestRepo(t *testing.T) (*SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := &SessionRepository{rdb: rdb}
	require.NoError(t, repo.Init(context.Background()))
	return repo, mr
}

func TestSessionRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRepo(t)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Create(ctx, &domain.Session{
		ID:        "abc",
		UserID:    7,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))
	assert.True(t, mr.Exists("inventory:sess:abc"))
	assert.Greater(t, mr.TTL("inventory:sess:abc"), 50*time.Minute)

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)))

	require.NoError(t, repo.Delete(ctx, "abc"))
	_, err = repo.Get(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepository_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRepo(t)

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "short", UserID: 1, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	mr.FastForward(2 * time.Minute)
	_, err := repo.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionRepository_RejectsExpiredSession(t *testing.T) {
	repo, _ := newTestRepo(t)

	now := time.Now().UTC()
	err := repo.Create(context.Background(), &domain.Session{ID: "old", UserID: 1, CreatedAt: now, ExpiresAt: now.Add(-time.Second)})
	require.Error(t, err)
	assert.True(t, domain.IsPersistence(err))
}
