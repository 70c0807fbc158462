// Package store 提供 core.Store / core.KeyValueStore 与 core.EmbeddingIndex 的实现。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
// 示例：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	var idx core.EmbeddingIndex = store.NewMemoryEmbeddingIndex(dim)
package store

import "github.com/rushteam/hybridrec/core"

// ErrNotFound 是 core.ErrStoreNotFound 的别名，方便实现内部使用。
var ErrNotFound = core.ErrStoreNotFound
