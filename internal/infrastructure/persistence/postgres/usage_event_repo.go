// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gruenerator-assist-api/internal/domain/entity"
	"gruenerator-assist-api/internal/domain/repository"
)

const usageEventColumns = 10

// UsageEventRepository 用量事件仓储实现
type UsageEventRepository struct {
	client *Client
}

var _ repository.UsageEventRepository = (*UsageEventRepository)(nil)

// NewUsageEventRepository 创建用量事件仓储
func NewUsageEventRepository(client *Client) *UsageEventRepository {
	return &UsageEventRepository{client: client}
}

// Create 写入单条用量事件
func (r *UsageEventRepository) Create(ctx context.Context, evt *entity.UsageEvent) error {
	ctx, span := tracer.Start(ctx, "postgres.UsageEventRepository.Create")
	defer span.End()

	query := `
		INSERT INTO usage_events (id, user_id, kind, intent, model, source,
			tokens_prompt, tokens_completion, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if _, err := r.client.db.ExecContext(ctx, query, usageEventArgs(evt)...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create usage event: %w", err)
	}
	return nil
}

// CreateBatch 批量写入用量事件，单条 INSERT 多值
func (r *UsageEventRepository) CreateBatch(ctx context.Context, evts []*entity.UsageEvent) error {
	if len(evts) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "postgres.UsageEventRepository.CreateBatch")
	defer span.End()

	placeholders := make([]string, 0, len(evts))
	args := make([]interface{}, 0, len(evts)*usageEventColumns)
	for i, evt := range evts {
		base := i * usageEventColumns
		row := make([]string, usageEventColumns)
		for j := range row {
			row[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(row, ", ")+")")
		args = append(args, usageEventArgs(evt)...)
	}

	query := fmt.Sprintf(`
		INSERT INTO usage_events (id, user_id, kind, intent, model, source,
			tokens_prompt, tokens_completion, duration_ms, created_at)
		VALUES %s
	`, strings.Join(placeholders, ", "))

	if _, err := r.client.db.ExecContext(ctx, query, args...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create usage events: %w", err)
	}
	return nil
}

func usageEventArgs(evt *entity.UsageEvent) []interface{} {
	var intent, model, source sql.NullString
	if evt.Intent != "" {
		intent = sql.NullString{String: evt.Intent, Valid: true}
	}
	if evt.Model != "" {
		model = sql.NullString{String: evt.Model, Valid: true}
	}
	if evt.Source != "" {
		source = sql.NullString{String: evt.Source, Valid: true}
	}

	return []interface{}{
		evt.ID, evt.UserID, evt.Kind, intent, model, source,
		evt.TokensPrompt, evt.TokensCompletion, evt.DurationMs, evt.CreatedAt,
	}
}
