package core

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/smartbrain-service/config"
)

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.RedisConfig{
		Host: "cache", Port: "6380", DB: 2, PoolSize: 5, ReadTimeout: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 5, opts.PoolSize)
	assert.Equal(t, time.Second, opts.ReadTimeout)

	opts, err = redisOptions(config.RedisConfig{URL: "redis://:pw@other:6390/3", Host: "ignored", Port: "1"})
	require.NoError(t, err)
	assert.Equal(t, "other:6390", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = redisOptions(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	client, err := NewRedis(context.Background(), config.RedisConfig{Host: host, Port: port, DialTimeout: time.Second})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedis(context.Background(), config.RedisConfig{Host: host, Port: port, DialTimeout: time.Second})
	assert.Error(t, err)
}
