package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/chat"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/config"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/database"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/knowledge"
)

// HTTPGinServer 基于 Gin 的 HTTP 服务器
type HTTPGinServer struct {
	config *config.Config
	engine *gin.Engine
	server *http.Server

	knowledgeHandler *KnowledgeHandler
	categoryHandler  *CategoryHandler
	chatHandler      *ChatHandler
	authHandler      *AuthHandler
}

// NewHTTPGinServer 创建基于 Gin 的 HTTP 服务器，装配知识库流水线与对话服务
func NewHTTPGinServer(cfg *config.Config) (*HTTPGinServer, error) {
	// 设置 Gin 模式
	if cfg.Server.HTTP.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.GetDB()
	store := knowledge.NewStore(db)

	// 可选的 Redis 向量缓存
	var embCache *knowledge.EmbeddingCache
	if cfg.Cache.Enabled {
		var err error
		embCache, err = knowledge.NewEmbeddingCache(
			cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB,
			time.Duration(cfg.Cache.TTL)*time.Second)
		if err != nil {
			logx.Warn("⚠️  Redis connection failed: %v, embeddings will not be cached", err)
			embCache = nil
		} else {
			logx.Info("✅ Redis embedding cache connected: %s", cfg.Cache.Addr)
		}
	}

	embedder, err := knowledge.NewOpenAIEmbedder(&cfg.Embedding, embCache)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	pipeline := knowledge.NewPipeline(store, embedder,
		cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	retriever := knowledge.NewRetriever(store, embedder,
		cfg.Knowledge.SimilarityThreshold, cfg.Knowledge.MaxResults)

	var chatService *chat.Service
	if cfg.LLM.Enabled {
		chatService, err = chat.NewService(cfg, db, retriever)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat service: %w", err)
		}
		logx.Info("✅ Stormy chat service initialized (model=%s)", cfg.LLM.Model)
	}

	s := &HTTPGinServer{
		config:           cfg,
		engine:           gin.New(),
		knowledgeHandler: NewKnowledgeHandler(store, pipeline, retriever, cfg),
		categoryHandler:  NewCategoryHandler(store),
		chatHandler:      NewChatHandler(chatService),
		authHandler:      NewAuthHandler(db),
	}

	// 注册中间件
	s.registerMiddlewares()

	// 注册路由
	s.registerRoutes()

	return s, nil
}

// registerMiddlewares 注册中间件
func (s *HTTPGinServer) registerMiddlewares() {
	// 恢复中间件 - 从 panic 恢复
	s.engine.Use(gin.Recovery())

	// 请求ID中间件，审计日志会记录
	s.engine.Use(s.requestIDMiddleware())

	// 自定义日志中间件
	s.engine.Use(s.loggingMiddleware())

	// CORS 中间件
	s.engine.Use(s.corsMiddleware())
}

// requestIDMiddleware 为每个请求生成 request id
func (s *HTTPGinServer) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// loggingMiddleware 自定义日志中间件
func (s *HTTPGinServer) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		logx.Info("HTTP request, method %s, path %s, status %d, duration %s, remote_addr %s",
			method, path, status, duration, c.ClientIP())
	}
}

// corsMiddleware CORS 中间件
func (s *HTTPGinServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// registerRoutes 注册路由
func (s *HTTPGinServer) registerRoutes() {
	// API v1 路由组
	v1 := s.engine.Group("/api/v1")
	{
		// 健康检查
		v1.GET("/health", s.handleHealth)

		s.authHandler.RegisterRoutes(v1)
		s.knowledgeHandler.RegisterRoutes(v1)
		s.categoryHandler.RegisterRoutes(v1)
		s.chatHandler.RegisterRoutes(v1)
	}
}

// Start 启动 HTTP 服务器
func (s *HTTPGinServer) Start() error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.config.Server.HTTP.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // 审批会同步生成向量，按内容长度可能耗时较久
	}

	logx.Info("🛜 Starting HTTP Server (Gin), Addr %s", addr)
	return s.server.ListenAndServe()
}

// Stop 停止 HTTP 服务器
func (s *HTTPGinServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *HTTPGinServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"status": "healthy"},
	})
}

// auditMeta 从请求上下文提取审计元信息
func auditMeta(c *gin.Context) knowledge.AuditMeta {
	actor := c.GetString("username")
	if actor == "" {
		actor = c.GetHeader("X-Username")
	}
	return knowledge.AuditMeta{
		Actor:     actor,
		RequestID: c.GetString("request_id"),
		ClientIP:  c.ClientIP(),
	}
}
