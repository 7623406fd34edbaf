package global

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/FrankZheng1985/sysafari-logistics-sub020/service/mgo"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/service/storage"
	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/ids"
)

// AppConfig 进程配置，全部来自环境变量
type AppConfig struct {
	Env        string // dev / production
	ListenAddr string
	NodeID     string
	NodeNum    int64 // 雪花ID节点号

	AllowOrigins []string // 生产环境的跨域白名单

	Redis storage.RedisConfig
	Mongo mgo.Config

	PresenceTTL time.Duration
}

func (c *AppConfig) IsProd() bool { return c.Env == "production" }

// LoadConfig 读环境变量，给齐默认值
func LoadConfig() *AppConfig {
	c := &AppConfig{
		Env:        getEnv("APP_ENV", "dev"),
		ListenAddr: getEnv("LISTEN_ADDR", ":8082"),
		NodeID:     getEnv("NODE_ID", "chat_gw-1"),
		NodeNum:    getEnvInt("NODE_NUM", 1),
		Redis: storage.RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       int(getEnvInt("REDIS_DB", 0)),
			PoolSize: int(getEnvInt("REDIS_POOL_SIZE", 10)),
		},
		Mongo: mgo.Config{
			Uri:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:    getEnv("MONGO_DB", "logistics_chat"),
			Username:    getEnv("MONGO_USER", ""),
			Password:    getEnv("MONGO_PASSWORD", ""),
			MaxPoolSize: int(getEnvInt("MONGO_POOL_SIZE", 20)),
			MaxRetry:    3,
		},
		PresenceTTL: time.Duration(getEnvInt("PRESENCE_TTL_SEC", 300)) * time.Second,
	}
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowOrigins = append(c.AllowOrigins, o)
			}
		}
	}
	return c
}

// OriginAllowList 开发环境放行一切（返回 nil 即不限制）
func (c *AppConfig) OriginAllowList() []string {
	if !c.IsProd() {
		return nil
	}
	return c.AllowOrigins
}

// ===== 初始化入口 =====

func ConfigIds(c *AppConfig) {
	ids.SetNodeID(c.NodeNum)
}

func ConfigRedis(c *AppConfig) error {
	return storage.InitRedis(c.Redis)
}

func ConfigMgo(ctx context.Context, c *AppConfig) error {
	return mgo.InitMongo(ctx, &c.Mongo)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
