package mgo

import (
	"context"
	"sync"
	"time"

	"github.com/FrankZheng1985/sysafari-logistics-sub020/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config MongoDB 连接配置
type Config struct {
	Uri         string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
	MaxRetry    int
}

func (c *Config) norm() {
	if c.Database == "" {
		c.Database = "logistics_chat"
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 20
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = 3
	}
	if c.AuthSource == "" {
		c.AuthSource = "admin"
	}
}

var (
	mgoOnce sync.Once
	mgoCli  *mongo.Client
	mgoDB   *mongo.Database
)

// InitMongo 初始化 Mongo 连接（单例），失败按 MaxRetry 重试
func InitMongo(ctx context.Context, cfg *Config) error {
	var initErr error
	mgoOnce.Do(func() {
		cfg.norm()
		if cfg.Uri == "" {
			initErr = errs.ArgsError.WrapMsg("mongo uri is required")
			return
		}

		opts := options.Client().ApplyURI(cfg.Uri)
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
		if cfg.Username != "" {
			opts.SetAuth(options.Credential{
				Username:   cfg.Username,
				Password:   cfg.Password,
				AuthSource: cfg.AuthSource,
			})
		}

		var cli *mongo.Client
		var err error
		for i := 0; i < cfg.MaxRetry; i++ {
			cli, err = connect(ctx, opts)
			if err == nil {
				break
			}
			time.Sleep(time.Second / 2)
		}
		if err != nil {
			initErr = errs.WrapMsg(err, "connect mongodb "+cfg.Uri)
			return
		}
		mgoCli = cli
		mgoDB = cli.Database(cfg.Database)
	})
	return initErr
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cli, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(cctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(cctx)
		return nil, err
	}
	return cli, nil
}

// GetDB 获取数据库句柄
func GetDB() *mongo.Database {
	if mgoDB == nil {
		panic("mongo not initialized, call InitMongo first")
	}
	return mgoDB
}

// CloseMongo 断开连接
func CloseMongo(ctx context.Context) error {
	if mgoCli != nil {
		return mgoCli.Disconnect(ctx)
	}
	return nil
}
