package chat

import (
	"sync"
	"time"
)

// PromptCache 系统提示词的读穿缓存
// 显式的 值+时间戳+TTL 对象，注入时钟便于测试，并发请求下安全
type PromptCache struct {
	mu       sync.Mutex
	value    string
	cachedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewPromptCache 创建提示词缓存
func NewPromptCache(ttl time.Duration) *PromptCache {
	return &PromptCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Get 返回缓存值，过期或为空时调用 build 重建
func (c *PromptCache) Get(build func() string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value != "" && c.now().Sub(c.cachedAt) < c.ttl {
		return c.value
	}

	c.value = build()
	c.cachedAt = c.now()
	return c.value
}

// Invalidate 主动失效，下次 Get 重建
func (c *PromptCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = ""
}
