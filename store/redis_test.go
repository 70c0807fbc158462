package store

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

func TestNewRedisStore_Unreachable(t *testing.T) {
	// 端口 1 不会有 Redis 监听，Ping 失败时不返回 Store
	s, err := NewRedisStore("127.0.0.1:1", 0)
	require.Error(t, err)
	assert.Nil(t, s)
}

func TestNewRedisStoreFromClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	var s core.KeyValueStore = NewRedisStoreFromClient(client)
	assert.Equal(t, "redis", s.Name())
}
