package resultstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aroundme/aroundme/pkg/models"
)

// storeUnderTest runs the Store contract tests against an implementation.
func storeUnderTest(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("set then get returns exact bytes", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":1}`), got)
	})

	t.Run("missing key is a cache miss", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("writes are idempotent replacements", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "k", []byte("one"), time.Minute))
		require.NoError(t, s.Set(ctx, "k", []byte("two"), time.Minute))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})

	t.Run("delete removes the key", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
		require.NoError(t, s.Delete(ctx, "k"))
		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("ping succeeds", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()
		assert.NoError(t, s.Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, func(t *testing.T) Store { return NewMemoryStore() })

	t.Run("entries expire", func(t *testing.T) {
		s := NewMemoryStore()
		defer s.Close()

		require.NoError(t, s.Set(context.Background(), "k", []byte("v"), 10*time.Millisecond))
		time.Sleep(20 * time.Millisecond)
		_, err := s.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}

func newMiniredisStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreFromClient(client)
}

func TestRedisStore(t *testing.T) {
	storeUnderTest(t, newMiniredisStore)

	t.Run("entries expire", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		s := NewRedisStoreFromClient(client)
		defer s.Close()

		require.NoError(t, s.Set(context.Background(), "k", []byte("v"), time.Second))
		mr.FastForward(2 * time.Second)
		_, err := s.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}

func TestResultStore(t *testing.T) {
	ctx := context.Background()

	newResultStore := func(t *testing.T) *ResultStore {
		return NewResultStore(newMiniredisStore(t), 900*time.Second)
	}

	t.Run("round-trips a result set under a fresh id", func(t *testing.T) {
		rs := newResultStore(t)

		set := models.ResultSet{
			Places:         []models.Place{{ID: "p1", Name: "Blue Bottle"}},
			CreatedAt:      time.Now().UTC().Truncate(time.Second),
			ConversationID: "conv-1",
			Query:          "coffee",
			RadiusM:        3000,
		}

		id, err := rs.StoreResultSet(ctx, set)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := rs.GetResultSet(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ResultSetID)
		require.Len(t, got.Places, 1)
		assert.Equal(t, "Blue Bottle", got.Places[0].Name)
		assert.Equal(t, "coffee", got.Query)
	})

	t.Run("conversation resolves to latest result set", func(t *testing.T) {
		rs := newResultStore(t)

		first, err := rs.StoreResultSet(ctx, models.ResultSet{ConversationID: "conv-2", Places: []models.Place{{ID: "a"}}})
		require.NoError(t, err)
		second, err := rs.StoreResultSet(ctx, models.ResultSet{ConversationID: "conv-2", Places: []models.Place{{ID: "b"}}})
		require.NoError(t, err)
		require.NotEqual(t, first, second)

		got, err := rs.LatestResultSet(ctx, "conv-2")
		require.NoError(t, err)
		assert.Equal(t, second, got.ResultSetID)
	})

	t.Run("unknown ids miss", func(t *testing.T) {
		rs := newResultStore(t)

		_, err := rs.GetResultSet(ctx, "nope")
		assert.ErrorIs(t, err, ErrCacheMiss)
		_, err = rs.LatestResultSet(ctx, "nope")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("response cache round-trip", func(t *testing.T) {
		rs := newResultStore(t)

		resp := &models.SearchResponse{ResultSetID: "rs-1", Places: []models.Place{{ID: "p"}}}
		require.NoError(t, rs.CacheResponse(ctx, "search:abc", resp, time.Minute))

		got, err := rs.GetCachedResponse(ctx, "search:abc")
		require.NoError(t, err)
		assert.Equal(t, "rs-1", got.ResultSetID)
	})
}

func TestCacheKey(t *testing.T) {
	base := &models.SearchRequest{Query: "coffee", Lat: 37.7749, Lng: -122.4194, RadiusM: 3000}

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, CacheKey(base), CacheKey(base))
	})

	t.Run("prefix and length", func(t *testing.T) {
		key := CacheKey(base)
		assert.Regexp(t, `^search:[0-9a-f]{16}$`, key)
	})

	t.Run("varies by inputs", func(t *testing.T) {
		other := *base
		other.RadiusM = 5000
		assert.NotEqual(t, CacheKey(base), CacheKey(&other))

		filtered := *base
		filtered.Filters = &models.SearchFilters{Price: &models.PriceRange{Min: 1, Max: 2}}
		assert.NotEqual(t, CacheKey(base), CacheKey(&filtered))

		preset := *base
		preset.Context = &models.SearchContext{RankingPreset: models.PresetNearby}
		assert.NotEqual(t, CacheKey(base), CacheKey(&preset))
	})
}
