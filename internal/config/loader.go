package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig 从YAML文件加载配置，支持环境变量覆盖
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// 默认配置文件搜索路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.winnstorm")
		v.AddConfigPath("/etc/winnstorm")
	}

	// 支持环境变量
	v.SetEnvPrefix("WINNSTORM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果是找不到配置文件，则使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 替换环境变量
	expandEnvVars(&config)

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Server 默认配置
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.debug", false)

	// LLM 默认配置
	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.3)

	// Embedding 默认配置
	v.SetDefault("embedding.model", "text-embedding-3-small")

	// Cache 默认配置
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "127.0.0.1:6379")
	v.SetDefault("cache.ttl", 86400)

	// 知识库检索参数，阈值按当前向量模型标定
	v.SetDefault("knowledge.chunk_size", 1000)
	v.SetDefault("knowledge.chunk_overlap", 200)
	v.SetDefault("knowledge.similarity_threshold", 0.7)
	v.SetDefault("knowledge.max_results", 5)
	v.SetDefault("knowledge.context_budget", 12000)

	// Chat 默认配置
	v.SetDefault("chat.system_prompt", defaultSystemPrompt)
	v.SetDefault("chat.prompt_cache_ttl", 300)

	// Storage 默认配置
	v.SetDefault("storage.upload_dir", "./data/uploads")
}

// expandEnvVars 展开配置中的环境变量占位
func expandEnvVars(config *Config) {
	config.LLM.APIKey = os.ExpandEnv(config.LLM.APIKey)
	config.LLM.BaseURL = os.ExpandEnv(config.LLM.BaseURL)
	config.Embedding.APIKey = os.ExpandEnv(config.Embedding.APIKey)
	config.Embedding.BaseURL = os.ExpandEnv(config.Embedding.BaseURL)
	config.Cache.Password = os.ExpandEnv(config.Cache.Password)
}

// defaultSystemPrompt Stormy 的基础人设
const defaultSystemPrompt = `You are Stormy, the AI assistant for WinnStorm, a platform for property-damage inspection consultants. You help inspectors with storm damage assessment, inspection methodology, insurance documentation, and manufacturer specifications. Answer concisely and cite the knowledge base material you were given when it is relevant.`
