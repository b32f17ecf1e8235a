package repository

import (
	"context"

	"gruenerator-assist-api/internal/domain/entity"
)

// UsageEventRepository 用量事件仓储端口
type UsageEventRepository interface {
	Create(ctx context.Context, evt *entity.UsageEvent) error
	CreateBatch(ctx context.Context, evts []*entity.UsageEvent) error
}
