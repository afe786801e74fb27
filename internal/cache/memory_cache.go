package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 基于go-cache实现的内存缓存
// 额外跟踪每个条目的写入时间以支持统计信息
type MemoryCache struct {
	cache *gocache.Cache

	mu         sync.Mutex
	insertedAt map[string]time.Time
}

// NewMemoryCache 创建一个新的内存缓存
func NewMemoryCache(config Config) (Cache, error) {
	defaultExpiration := config.DefaultTTL
	if defaultExpiration == 0 {
		defaultExpiration = gocache.NoExpiration
	}

	cleanupInterval := config.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 10 * time.Minute
	}

	c := gocache.New(defaultExpiration, cleanupInterval)

	m := &MemoryCache{
		cache:      c,
		insertedAt: make(map[string]time.Time),
	}

	// 条目过期或被删除时同步清理写入时间记录
	c.OnEvicted(func(key string, _ interface{}) {
		m.mu.Lock()
		delete(m.insertedAt, key)
		m.mu.Unlock()
	})

	return m, nil
}

// Get 获取缓存内容
func (m *MemoryCache) Get(key string) (string, bool, error) {
	if value, found := m.cache.Get(key); found {
		str, ok := value.(string)
		if !ok {
			return "", false, nil
		}
		return str, true, nil
	}
	return "", false, nil
}

// Set 设置缓存内容
func (m *MemoryCache) Set(key string, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(key, value, ttl)

	m.mu.Lock()
	m.insertedAt[key] = time.Now()
	m.mu.Unlock()
	return nil
}

// Delete 删除缓存项
func (m *MemoryCache) Delete(key string) error {
	m.cache.Delete(key)

	m.mu.Lock()
	delete(m.insertedAt, key)
	m.mu.Unlock()
	return nil
}

// Clear 清空所有缓存
func (m *MemoryCache) Clear() error {
	m.cache.Flush()

	m.mu.Lock()
	m.insertedAt = make(map[string]time.Time)
	m.mu.Unlock()
	return nil
}

// Stats 返回缓存统计信息
func (m *MemoryCache) Stats() (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{Size: m.cache.ItemCount()}

	var oldest time.Time
	for key, at := range m.insertedAt {
		// 跳过已经过期但尚未被清理协程回收的条目
		if _, found := m.cache.Get(key); !found {
			continue
		}
		if oldest.IsZero() || at.Before(oldest) {
			oldest = at
		}
	}
	if !oldest.IsZero() {
		age := time.Since(oldest).Milliseconds()
		stats.OldestAgeMs = &age
	}

	return stats, nil
}

// 在包初始化时注册内存缓存
func init() {
	RegisterCache("memory", NewMemoryCache)
}
