package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	"gruenerator-assist-api/internal/config"
)

// Client 在 Eino Embedder 之上做分批与 float32 转换
type Client struct {
	embedder  embedding.Embedder
	batchSize int
}

// NewClient 创建向量化客户端
func NewClient(embedder embedding.Embedder, cfg config.EmbeddingConfig) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Client{
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// Embed 向量化文本，按配置分批调用
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedder.EmbedStrings(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed texts: %w", err)
		}

		for _, vec := range vectors {
			converted := make([]float32, len(vec))
			for j, v := range vec {
				converted[j] = float32(v)
			}
			all = append(all, converted)
		}
	}

	return all, nil
}
