package querycache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, time.Minute, zerolog.Nop()), mr
}

type row struct {
	ID string `json:"id"`
}

func TestRedisStorePutGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	key := Tag(Applications).With("studentId", "s1").WithInt("take", 50)

	require.NoError(t, s.Put(ctx, key, []row{{ID: "a1"}}))

	var got []row
	hit, err := s.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []row{{ID: "a1"}}, got)

	assert.True(t, mr.Exists("qc:"+key.String()))
	members, err := mr.SMembers("qc:tag:APPLICATIONS")
	require.NoError(t, err)
	assert.Equal(t, []string{key.String()}, members)
}

func TestRedisStoreInvalidateBySubset(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	s1 := Tag(Applications).With("studentId", "s1").WithInt("take", 50)
	s1p2 := s1.WithInt("page", 2)
	s2 := Tag(Applications).With("studentId", "s2").WithInt("take", 50)
	for _, k := range []Key{s1, s1p2, s2} {
		require.NoError(t, s.Put(ctx, k, []row{}))
	}

	removed, err := s.Invalidate(ctx, Tag(Applications).With("studentId", "s1"))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.False(t, mr.Exists("qc:"+s1.String()))
	assert.False(t, mr.Exists("qc:"+s1p2.String()))
	assert.True(t, mr.Exists("qc:"+s2.String()))
}

func TestRememberLoadsOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	key := Tag(Courses)
	calls := 0
	load := func(ctx context.Context) ([]row, error) {
		calls++
		return []row{{ID: "c1"}}, nil
	}

	for i := 0; i < 3; i++ {
		rows, err := Remember(ctx, s, key, load)
		require.NoError(t, err)
		assert.Equal(t, "c1", rows[0].ID)
	}
	assert.Equal(t, 1, calls)

	_, err := s.Invalidate(ctx, Tag(Courses))
	require.NoError(t, err)
	_, err = Remember(ctx, s, key, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRememberPropagatesLoadError(t *testing.T) {
	s, mr := newTestStore(t)
	boom := errors.New("boom")

	_, err := Remember(context.Background(), s, Tag(Students), func(ctx context.Context) ([]row, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("qc:STUDENTS"))
}

func TestRememberDoesNotStoreLoadOvertakenByInvalidate(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	key := Tag(Applications).With("studentId", "s1").WithInt("take", 50)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan []row)
	go func() {
		rows, err := Remember(ctx, s, key, func(ctx context.Context) ([]row, error) {
			close(started)
			<-release
			return []row{}, nil
		})
		assert.NoError(t, err)
		done <- rows
	}()

	<-started
	_, err := s.Invalidate(ctx, Tag(Applications).With("studentId", "s1"))
	require.NoError(t, err)
	close(release)
	assert.Empty(t, <-done)
	assert.False(t, mr.Exists("qc:"+key.String()))

	rows, err := Remember(ctx, s, key, func(ctx context.Context) ([]row, error) {
		return []row{{ID: "a1"}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []row{{ID: "a1"}}, rows)

	var cached []row
	hit, err := s.Get(ctx, key, &cached)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []row{{ID: "a1"}}, cached)
}

func TestInvalidateOtherResourceKeepsLoad(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := Remember(ctx, s, Tag(Courses), func(ctx context.Context) ([]row, error) {
			close(started)
			<-release
			return []row{{ID: "c1"}}, nil
		})
		assert.NoError(t, err)
	}()

	<-started
	_, err := s.Invalidate(ctx, Tag(Students))
	require.NoError(t, err)
	close(release)
	<-done
	assert.True(t, mr.Exists("qc:"+Tag(Courses).String()))
}
