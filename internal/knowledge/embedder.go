package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/config"
)

// maxEmbeddingChars 单次向量化的字符上限
// 向量接口有 token 限制，超长直接截断而不是再分块，
// 分块本身不超过 1000 字符，只有异常的单块会触发
const maxEmbeddingChars = 8000

// ErrNoAPIKey 未配置向量接口凭证
var ErrNoAPIKey = errors.New("embedding API key is not configured")

// Embedder 向量化接口（窄接口，便于测试替身）
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	GetModel() string
}

// OpenAIEmbedder 基于 Eino 的 OpenAI 向量化实现
type OpenAIEmbedder struct {
	embedder embedding.Embedder
	model    string          // 当前使用的模型标识
	cache    *EmbeddingCache // 可选，缓存向量结果
}

// NewOpenAIEmbedder 创建向量化服务（复用 Eino）
func NewOpenAIEmbedder(cfg *config.EmbeddingConfig, cache *EmbeddingCache) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	embedder, err := openai.NewEmbedder(context.Background(), &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		model:    cfg.Model,
		cache:    cache,
	}, nil
}

// Embed 获取文本的向量表示，上游错误原样向调用方传播
func (s *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	// 超长截断
	if runes := []rune(text); len(runes) > maxEmbeddingChars {
		text = string(runes[:maxEmbeddingChars])
	}

	// 1. 先检查 Redis 缓存
	if s.cache != nil {
		cached, err := s.cache.GetEmbedding(s.model, text)
		if err == nil && cached != nil {
			logx.Debug("Embedding cache hit, model=%s", s.model)
			return cached, nil
		}
	}

	// 2. 调用 Eino Embedder
	vectors, err := s.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	result := vectors[0]

	// 3. 缓存结果
	if s.cache != nil {
		if err := s.cache.SetEmbedding(s.model, text, result); err != nil {
			logx.Warn("Failed to cache embedding: %v", err)
		}
	}

	return result, nil
}

// GetModel 获取当前模型标识
func (s *OpenAIEmbedder) GetModel() string {
	return s.model
}
