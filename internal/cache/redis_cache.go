package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// 所有键都带上服务前缀，避免和共用Redis里的其他服务冲突
const redisKeyPrefix = "examgrading:"

// 单次Redis操作的超时时间
const redisOpTimeout = 5 * time.Second

// RedisCache 基于Redis实现的缓存
// 多实例部署时共享评卷报告缓存
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 创建一个新的Redis缓存
func NewRedisCache(config Config) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// 启动时校验连接可用
	ctx, cancel := opContext()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// Get 获取缓存内容
func (r *RedisCache) Get(key string) (string, bool, error) {
	ctx, cancel := opContext()
	defer cancel()

	value, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set 设置缓存内容
func (r *RedisCache) Set(key string, value string, ttl time.Duration) error {
	ctx, cancel := opContext()
	defer cancel()

	return r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}

// Delete 删除缓存项
func (r *RedisCache) Delete(key string) error {
	ctx, cancel := opContext()
	defer cancel()

	return r.client.Del(ctx, redisKeyPrefix+key).Err()
}

// Clear 清空本服务写入的所有缓存项
// 只扫描带服务前缀的键，不影响Redis里其他服务的数据
func (r *RedisCache) Clear() error {
	ctx, cancel := opContext()
	defer cancel()

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

// 在包初始化时注册Redis缓存
func init() {
	RegisterCache("redis", NewRedisCache)
}
