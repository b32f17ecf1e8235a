package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"gruenerator-assist-api/internal/application/classify"
	"gruenerator-assist-api/pkg/logger"
)

var cacheTracer = otel.Tracer("redis.cache")

// ClassificationCache LLM 分类结果缓存。
// 缓存故障时直接回源，绝不阻断分类流程。
type ClassificationCache struct {
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewClassificationCache 创建分类缓存
func NewClassificationCache(client *Client, ttl time.Duration) *ClassificationCache {
	return &ClassificationCache{
		client: client,
		ttl:    ttl,
	}
}

// GetOrLoad 读取缓存的分类结果，未命中时通过 singleflight 合并并发回源
func (c *ClassificationCache) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) *classify.Result) *classify.Result {
	if c.ttl <= 0 {
		return load(ctx)
	}

	cacheKey := "classify:" + hashKey(key)

	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", cacheKey)))
	defer span.End()

	if res, ok := c.lookup(ctx, cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return res
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	val, _, shared := c.group.Do(cacheKey, func() (interface{}, error) {
		// 可能已被并发请求填充
		if res, ok := c.lookup(ctx, cacheKey); ok {
			return res, nil
		}

		res := load(ctx)
		if res == nil {
			return nil, nil
		}

		bytes, err := json.Marshal(res)
		if err != nil {
			logger.Warn(ctx, "分类结果序列化失败，跳过缓存写入", "error", err)
			return res, nil
		}
		if err := c.client.Set(ctx, cacheKey, bytes, c.ttl); err != nil {
			// 缓存写入失败不影响返回结果
			logger.Warn(ctx, "分类缓存写入失败", "error", err)
		}
		return res, nil
	})

	span.SetAttributes(attribute.Bool("cache.shared", shared))

	res, _ := val.(*classify.Result)
	return res
}

func (c *ClassificationCache) lookup(ctx context.Context, cacheKey string) (*classify.Result, bool) {
	raw, err := c.client.Get(ctx, cacheKey)
	if err != nil {
		if !IsNil(err) {
			logger.Warn(ctx, "分类缓存读取失败，回源分类", "error", err)
		}
		return nil, false
	}

	var res classify.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		logger.Warn(ctx, "分类缓存内容损坏，回源分类", "error", err)
		return nil, false
	}
	return &res, true
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
