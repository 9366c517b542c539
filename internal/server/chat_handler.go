package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/chat"
)

// ChatHandler 处理 Stormy 对话请求
type ChatHandler struct {
	chatService *chat.Service
}

// NewChatHandler 创建 ChatHandler
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// RegisterRoutes 注册路由
func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	cg := r.Group("/chat")
	{
		cg.POST("", h.Chat)
	}
}

// Chat 处理一次对话请求
func (h *ChatHandler) Chat(c *gin.Context) {
	if h.chatService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "error": "chat service is not enabled"})
		return
	}

	var req chat.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": err.Error()})
		return
	}
	if req.Username == "" {
		req.Username = c.GetHeader("X-Username")
	}

	resp, err := h.chatService.Chat(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": resp,
	})
}
