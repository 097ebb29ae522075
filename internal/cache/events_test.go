package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*EventList, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewEventList(rdb, ttl, zap.NewNop()), mr
}

func TestNilCacheIsCold(t *testing.T) {
	c := NewEventList(nil, time.Minute, zap.NewNop())
	assert.Nil(t, c)

	ctx := context.Background()
	c.Set(ctx, 0, []models.Event{{ID: 1, Title: "Go Meetup"}})
	_, _, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx))
}

func TestUnreachableRedisIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := NewEventList(rdb, time.Minute, zap.NewNop())

	ctx := context.Background()
	c.Set(ctx, 0, []models.Event{{ID: 1}})
	_, _, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Error(t, c.Invalidate(ctx))
}

func TestSetThenGet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, gen, ok := c.Get(ctx)
	require.False(t, ok)
	assert.Equal(t, int64(0), gen)

	date := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	want := []models.Event{
		{ID: 1, Title: "Go Meetup", Date: date, OrganizerID: 4, Organizer: &models.UserPublic{ID: 4, Name: "Olive"}},
		{ID: 2, Title: "Rust Night", Date: date.Add(24 * time.Hour), OrganizerID: 4},
	}
	c.Set(ctx, gen, want)

	got, _, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSetAppliesTTL(t *testing.T) {
	c, mr := newTestCache(t, 45*time.Second)
	ctx := context.Background()

	c.Set(ctx, 0, []models.Event{{ID: 1}})
	assert.Equal(t, 45*time.Second, mr.TTL(EventListKey))

	mr.FastForward(46 * time.Second)
	_, _, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestInvalidateClearsAndBumpsGeneration(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, 0, []models.Event{{ID: 1}})
	require.True(t, mr.Exists(EventListKey))

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists(EventListKey))

	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
}

func TestSetSkipsStaleGeneration(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, gen, _ := c.Get(ctx)
	require.NoError(t, c.Invalidate(ctx))

	c.Set(ctx, gen, []models.Event{{ID: 1, Title: "stale"}})
	assert.False(t, mr.Exists(EventListKey))

	_, gen, _ = c.Get(ctx)
	c.Set(ctx, gen, []models.Event{{ID: 1, Title: "fresh"}})
	got, _, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "fresh", got[0].Title)
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set(EventListKey, "{not json"))
	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)

	c.Set(ctx, gen, []models.Event{{ID: 3}})
	got, _, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), got[0].ID)
}
