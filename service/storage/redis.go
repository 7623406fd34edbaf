package storage

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce sync.Once
	redisCli  *redis.Client
)

// RedisConfig 初始化 Redis 用
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// InitRedis 初始化 Redis 客户端（单例）
func InitRedis(c RedisConfig) error {
	var initErr error
	redisOnce.Do(func() {
		cli := redis.NewClient(&redis.Options{
			Addr:     c.Addr,
			Password: c.Password,
			DB:       c.DB,
			PoolSize: c.PoolSize,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := cli.Ping(ctx).Err(); err != nil {
			initErr = err
			return
		}
		redisCli = cli
	})
	return initErr
}

// GetRedis 获取 Redis Client
func GetRedis() *redis.Client {
	if redisCli == nil {
		panic("redis not initialized, call InitRedis first")
	}
	return redisCli
}

// CloseRedis 关闭连接
func CloseRedis() error {
	if redisCli != nil {
		return redisCli.Close()
	}
	return nil
}
