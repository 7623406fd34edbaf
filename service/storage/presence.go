package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// 在线状态快照落 Redis，尽力而为：写失败只记日志，不影响内存侧的
// 上下线记账和广播。key 带 TTL，进程被杀后脏数据自己过期。
//
// key: chat:presence:<user>  hash{user_name, node_id, online_at}

const presenceKeyPrefix = "chat:presence:"

type PresenceStore struct {
	cli    *redis.Client
	nodeID string
	ttl    time.Duration
}

func NewPresenceStore(cli *redis.Client, nodeID string, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceStore{cli: cli, nodeID: nodeID, ttl: ttl}
}

func presenceKey(user string) string { return presenceKeyPrefix + user }

// Online 标记上线并刷新 TTL，昵称一起快照
func (p *PresenceStore) Online(ctx context.Context, userID, userName string) error {
	if p.cli == nil {
		return errors.New("redis not initialized")
	}
	key := presenceKey(userID)
	pipe := p.cli.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"user_name": userName,
		"node_id":   p.nodeID,
		"online_at": time.Now().UnixMilli(),
	})
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	return errors.WithStack(err)
}

// Offline 主动下线（删 key）
func (p *PresenceStore) Offline(ctx context.Context, userID string) error {
	if p.cli == nil {
		return errors.New("redis not initialized")
	}
	return errors.WithStack(p.cli.Del(ctx, presenceKey(userID)).Err())
}

// Lookup 查某个用户是否在线（跨节点查询用）
func (p *PresenceStore) Lookup(ctx context.Context, userID string) (nodeID string, online bool, err error) {
	if p.cli == nil {
		return "", false, errors.New("redis not initialized")
	}
	val, err := p.cli.HGet(ctx, presenceKey(userID), "node_id").Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WithStack(err)
	}
	return val, true, nil
}
