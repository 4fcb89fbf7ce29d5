package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	var c Cache = NewMemory(time.Minute)

	_, ok, err := c.Get(ctx, "gems:all")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "gems:all", []byte(`[]`), 0))
	v, ok, err := c.Get(ctx, "gems:all")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[]`), v)

	require.NoError(t, c.Delete(ctx, "gems:all"))
	_, ok, _ = c.Get(ctx, "gems:all")
	assert.False(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	r := NewRedis(RedisOptions{Addr: "127.0.0.1:1", Prefix: "test:"})
	defer r.Close()

	_, _, err := r.Get(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, r.Ping(ctx))
}
