package memory

import (
	"context"
	"sort"
	"testing"
	"time"

	"ragone-be/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStore_Values(t *testing.T) {
	ctx := context.Background()
	s := NewCacheStore()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)

	src := []byte("hello")
	require.NoError(t, s.Set(ctx, "k", src, time.Minute))
	src[0] = 'j'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, s.Delete(ctx, "k", "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestCacheStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewCacheStore()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 30*time.Millisecond))
	time.Sleep(60 * time.Millisecond)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestCacheStore_Sets(t *testing.T) {
	ctx := context.Background()
	s := NewCacheStore()

	require.NoError(t, s.SAdd(ctx, "idx", time.Minute, "a", "b"))
	require.NoError(t, s.SAdd(ctx, "idx", time.Minute, "c"))

	members, err := s.SMembers(ctx, "idx")
	require.NoError(t, err)
	sort.Strings(members)
	assert.Equal(t, []string{"a", "b", "c"}, members)

	require.NoError(t, s.SRem(ctx, "idx", "b"))
	members, err = s.SMembers(ctx, "idx")
	require.NoError(t, err)
	sort.Strings(members)
	assert.Equal(t, []string{"a", "c"}, members)

	require.NoError(t, s.SRem(ctx, "idx", "a", "c"))
	members, err = s.SMembers(ctx, "idx")
	require.NoError(t, err)
	assert.Empty(t, members)

	require.NoError(t, s.SRem(ctx, "never", "x"))
}
