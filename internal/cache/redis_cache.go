package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// insertedZSetSuffix 记录条目写入时间的有序集合键后缀
const insertedZSetSuffix = ":inserted"

// RedisCache 基于Redis实现的缓存
// 条目写入时间记录在一个有序集合中，用于统计最老条目的存活时长
type RedisCache struct {
	client      *redis.Client
	ctx         context.Context
	insertedKey string
}

// NewRedisCache 创建一个新的Redis缓存
func NewRedisCache(config Config) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// 测试连接
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultConfig().KeyPrefix
	}

	return &RedisCache{
		client:      client,
		ctx:         ctx,
		insertedKey: prefix + insertedZSetSuffix,
	}, nil
}

// Get 获取缓存内容
func (r *RedisCache) Get(key string) (string, bool, error) {
	value, err := r.client.Get(r.ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set 设置缓存内容
func (r *RedisCache) Set(key string, value string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(r.ctx, key, value, ttl)
	pipe.ZAdd(r.ctx, r.insertedKey, redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: key,
	})
	_, err := pipe.Exec(r.ctx)
	return err
}

// Delete 删除缓存项
func (r *RedisCache) Delete(key string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(r.ctx, key)
	pipe.ZRem(r.ctx, r.insertedKey, key)
	_, err := pipe.Exec(r.ctx)
	return err
}

// Clear 清空所有缓存
// 注意：这会清空整个Redis数据库，谨慎使用
func (r *RedisCache) Clear() error {
	return r.client.FlushDB(r.ctx).Err()
}

// Stats 返回缓存统计信息
// 有序集合中可能残留已过期条目的记录，统计时逐个校验并剔除
func (r *RedisCache) Stats() (Stats, error) {
	var stats Stats

	entries, err := r.client.ZRangeWithScores(r.ctx, r.insertedKey, 0, -1).Result()
	if err != nil {
		return stats, err
	}

	var oldest int64 = -1
	for _, entry := range entries {
		key, _ := entry.Member.(string)

		exists, err := r.client.Exists(r.ctx, key).Result()
		if err != nil {
			return stats, err
		}
		if exists == 0 {
			// 条目已过期，剔除写入时间记录
			if err := r.client.ZRem(r.ctx, r.insertedKey, key).Err(); err != nil {
				return stats, err
			}
			continue
		}

		stats.Size++
		score := int64(entry.Score)
		if oldest < 0 || score < oldest {
			oldest = score
		}
	}

	if oldest >= 0 {
		age := time.Now().UnixMilli() - oldest
		if age < 0 {
			age = 0
		}
		stats.OldestAgeMs = &age
	}

	return stats, nil
}

// 在包初始化时注册Redis缓存
func init() {
	RegisterCache("redis", NewRedisCache)
}
