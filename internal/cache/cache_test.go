package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestClient_NilIsSafe(t *testing.T) {
	ctx := context.Background()
	var c *Client

	data, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, data)
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, c.Enabled())
	assert.ErrorIs(t, c.Ping(ctx), ErrUnavailable)
	assert.NoError(t, c.Close())
}

func TestNew_EmptyAddrDisablesCache(t *testing.T) {
	c := New("", "", 0)

	assert.False(t, c.Enabled())
	var out map[string]string
	assert.False(t, c.GetJSON(context.Background(), "k", &out))
	assert.NoError(t, c.SetJSON(context.Background(), "k", map[string]string{"a": "b"}, time.Minute))
}

func TestClient_UnreachableRedisBehavesLikeMiss(t *testing.T) {
	c := NewFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
	defer c.Close()
	ctx := context.Background()

	assert.True(t, c.Enabled())
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	data, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, data)
	assert.NoError(t, c.Delete(ctx, "k", "other"))
	assert.Error(t, c.Ping(ctx))
}

func TestClient_SetJSONRejectsUnencodable(t *testing.T) {
	c := New("", "", 0)
	err := c.SetJSON(context.Background(), "k", make(chan int), time.Minute)
	assert.Error(t, err)
}
