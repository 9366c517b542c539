package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EmbeddingCache Redis 向量缓存层
type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEmbeddingCache 创建 Redis 向量缓存
func NewEmbeddingCache(addr, password string, db int, ttl time.Duration) (*EmbeddingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &EmbeddingCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// GetEmbedding 读取缓存的向量
func (c *EmbeddingCache) GetEmbedding(model, text string) ([]float64, error) {
	key := embeddingCacheKey(model, text)
	ctx := context.Background()

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil // 缓存未命中
	}
	if err != nil {
		return nil, err
	}

	var vector []float64
	if err := json.Unmarshal([]byte(data), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// SetEmbedding 写入向量缓存
func (c *EmbeddingCache) SetEmbedding(model, text string, vector []float64) error {
	key := embeddingCacheKey(model, text)
	ctx := context.Background()

	data, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Close 关闭 Redis 连接
func (c *EmbeddingCache) Close() error {
	return c.client.Close()
}

// embeddingCacheKey 计算缓存键
func embeddingCacheKey(model, text string) string {
	hash := sha256.Sum256([]byte(model + ":" + text))
	return fmt.Sprintf("emb:%x", hash[:16])
}
