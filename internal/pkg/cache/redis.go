package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"lightcore/internal/config"
)

// SessionCache 基于 Redis 的会话消息计数
// 用于实施每会话消息数上限；Redis 未配置时该限制关闭
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache 创建会话缓存客户端
func NewSessionCache(cfg *config.RedisConfig, ttl time.Duration) (*SessionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &SessionCache{client: client, ttl: ttl}, nil
}

// 会话计数 key 模式
const sessionCountKeyPrefix = "session:msgcount:"

func sessionCountKey(sessionID string) string {
	return sessionCountKeyPrefix + sessionID
}

// IncrMessages 递增会话消息计数并返回当前值
// 首次递增时设置会话 TTL，会话过期后计数自动清零
func (c *SessionCache) IncrMessages(ctx context.Context, sessionID string) (int64, error) {
	key := sessionCountKey(sessionID)

	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, c.ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Close 关闭连接
func (c *SessionCache) Close() error {
	return c.client.Close()
}
