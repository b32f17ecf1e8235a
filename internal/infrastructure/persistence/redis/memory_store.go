package redis

import (
	"context"
	"time"

	"gruenerator-assist-api/internal/domain/repository"
)

// 挂起状态在 24 小时无活动后过期
const pendingStateTTL = 24 * time.Hour

// PendingStateStore 基于 Redis 的对话挂起状态存储
type PendingStateStore struct {
	client *Client
}

var _ repository.PendingStateStore = (*PendingStateStore)(nil)

// NewPendingStateStore 创建挂起状态存储
func NewPendingStateStore(client *Client) *PendingStateStore {
	return &PendingStateStore{client: client}
}

// Get 读取挂起状态，不存在时返回 nil
func (s *PendingStateStore) Get(ctx context.Context, userKey string) ([]byte, error) {
	val, err := s.client.Get(ctx, pendingKey(userKey))
	if err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(val), nil
}

// Set 写入挂起状态并刷新过期时间
func (s *PendingStateStore) Set(ctx context.Context, userKey string, state []byte) error {
	return s.client.Set(ctx, pendingKey(userKey), state, pendingStateTTL)
}

// Clear 删除挂起状态
func (s *PendingStateStore) Clear(ctx context.Context, userKey string) error {
	return s.client.Del(ctx, pendingKey(userKey))
}

func pendingKey(userKey string) string {
	return "pending:" + userKey
}
