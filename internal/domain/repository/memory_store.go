package repository

import "context"

// PendingStateStore 对话记忆存储端口：按用户键读写挂起状态。
// 与追问式补充信息管理器共用同一键约定。
type PendingStateStore interface {
	Get(ctx context.Context, userKey string) ([]byte, error)
	Set(ctx context.Context, userKey string, state []byte) error
	Clear(ctx context.Context, userKey string) error
}
