package config

import (
	"fmt"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/store"
)

// OpenStore 按 store.backend 打开存储。redis 后端会先 Ping 确认连接可用。
func (c *Config) OpenStore() (core.KeyValueStore, error) {
	switch c.Store.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		s, err := store.NewRedisStore(c.Store.Addr, c.Store.DB)
		if err != nil {
			return nil, fmt.Errorf("open redis %s: %w", c.Store.Addr, err)
		}
		return s, nil
	default:
		return nil, core.ConfigError("unknown store backend %q", c.Store.Backend)
	}
}
