package config

// Config 全局配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig HTTP 监听配置
type HTTPConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

// LLMConfig 对话模型配置
type LLMConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
}

// EmbeddingConfig 向量模型配置
type EmbeddingConfig struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// CacheConfig Redis 缓存配置（可选，用于缓存向量结果）
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // 秒
}

// KnowledgeConfig 知识库检索参数
type KnowledgeConfig struct {
	ChunkSize           int     `mapstructure:"chunk_size"`           // 分块目标长度（字符）
	ChunkOverlap        int     `mapstructure:"chunk_overlap"`        // 相邻分块重叠长度
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"` // 语义检索相似度阈值
	MaxResults          int     `mapstructure:"max_results"`          // 默认返回条数
	ContextBudget       int     `mapstructure:"context_budget"`       // 上下文拼装字符预算
}

// ChatConfig Stormy 对话配置
type ChatConfig struct {
	SystemPrompt   string `mapstructure:"system_prompt"`
	PromptCacheTTL int    `mapstructure:"prompt_cache_ttl"` // 秒
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
}
