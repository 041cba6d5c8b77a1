package cache

import (
	"bookstore/models"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListKeyDistinguishesFilters(t *testing.T) {
	yes, no := true, false
	keys := map[string]bool{}
	for _, f := range []models.BookFilter{
		{},
		{Category: "Fiction"},
		{Search: "Fiction"},
		{Featured: &yes},
		{Featured: &no},
		{Category: "a|s=b"},
		{Category: "a", Search: "b"},
	} {
		k := ListKey(f)
		assert.False(t, keys[k], "duplicate key %s", k)
		keys[k] = true
	}

	assert.Equal(t, ListKey(models.BookFilter{Category: "Fiction"}), ListKey(models.BookFilter{Category: "Fiction"}))
}

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	var c BookCache = Nop{}

	entry, err := c.EntryKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "k", entry)

	require.NoError(t, c.SetList(ctx, entry, []models.Book{{Title: "Dune"}}))
	books, ok, err := c.GetList(ctx, entry)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, books)
	assert.NoError(t, c.Invalidate(ctx))
}

func newRedisBookCache(t *testing.T, ttl time.Duration) (*RedisBookCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Dial(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBookCache(client, ttl), mr
}

func TestRedisBookCacheHitAfterSet(t *testing.T) {
	c, _ := newRedisBookCache(t, time.Minute)
	ctx := context.Background()

	entry, err := c.EntryKey(ctx, ListKey(models.BookFilter{Category: "Fiction"}))
	require.NoError(t, err)

	books, ok, err := c.GetList(ctx, entry)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, books)

	require.NoError(t, c.SetList(ctx, entry, []models.Book{{Title: "Dune", Category: "Fiction", Price: 9.5}}))
	books, ok, err = c.GetList(ctx, entry)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, 9.5, books[0].Price)
}

func TestRedisBookCacheMissAfterInvalidate(t *testing.T) {
	c, _ := newRedisBookCache(t, time.Minute)
	ctx := context.Background()
	key := ListKey(models.BookFilter{})

	entry, err := c.EntryKey(ctx, key)
	require.NoError(t, err)
	require.NoError(t, c.SetList(ctx, entry, []models.Book{{Title: "Dune"}}))

	require.NoError(t, c.Invalidate(ctx))

	next, err := c.EntryKey(ctx, key)
	require.NoError(t, err)
	assert.NotEqual(t, entry, next)
	_, ok, err := c.GetList(ctx, next)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBookCacheListingReadBeforeWriteIsOrphaned(t *testing.T) {
	c, _ := newRedisBookCache(t, time.Minute)
	ctx := context.Background()
	key := ListKey(models.BookFilter{})

	// a reader resolves its entry and misses, a writer invalidates, then the
	// reader stores what it read before the write
	entry, err := c.EntryKey(ctx, key)
	require.NoError(t, err)
	_, ok, err := c.GetList(ctx, entry)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.SetList(ctx, entry, []models.Book{{Title: "Deleted Book"}}))

	current, err := c.EntryKey(ctx, key)
	require.NoError(t, err)
	books, ok, err := c.GetList(ctx, current)
	require.NoError(t, err)
	assert.False(t, ok, "listing read before the write must not be served")
	assert.Nil(t, books)
}

func TestRedisBookCacheEntriesExpire(t *testing.T) {
	c, mr := newRedisBookCache(t, 30*time.Second)
	ctx := context.Background()

	entry, err := c.EntryKey(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, c.SetList(ctx, entry, []models.Book{{Title: "Dune"}}))
	assert.Equal(t, 30*time.Second, mr.TTL(entry))

	mr.FastForward(31 * time.Second)
	_, ok, err := c.GetList(ctx, entry)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBookCacheCorruptPayload(t *testing.T) {
	c, mr := newRedisBookCache(t, time.Minute)
	ctx := context.Background()

	entry, err := c.EntryKey(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, mr.Set(entry, "not json"))

	books, ok, err := c.GetList(ctx, entry)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, books)
}

func TestRedisBookCacheBadGeneration(t *testing.T) {
	c, mr := newRedisBookCache(t, time.Minute)
	require.NoError(t, mr.Set(generationKey, "abc"))

	_, err := c.EntryKey(context.Background(), "k")
	require.Error(t, err)
}

func TestDialFailures(t *testing.T) {
	ctx := context.Background()

	_, err := Dial(ctx, "not-a-url")
	require.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = Dial(ctx, "redis://"+addr)
	require.Error(t, err)
}
