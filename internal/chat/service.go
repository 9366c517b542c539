package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"gorm.io/gorm"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/config"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/knowledge"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

// historyLimit 带入提示词的历史消息条数
const historyLimit = 10

// Service Stormy 对话服务
// 混合检索知识库 -> 拼装上下文 -> 调用对话模型，检索失败只会让回答
// 缺少知识库支撑，不会让对话请求失败
type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	retriever   *knowledge.Retriever
	chatModel   einomodel.ChatModel
	promptCache *PromptCache
}

// ChatRequest 对话请求
type ChatRequest struct {
	Username       string `json:"username"`
	Message        string `json:"message" binding:"required"`
	ConversationID uint   `json:"conversation_id"`
}

// ChatResponse 对话响应
type ChatResponse struct {
	Content        string `json:"content"`
	ConversationID uint   `json:"conversation_id"`
	ContextDocs    []uint `json:"context_docs,omitempty"` // 本次回答引用的文档
}

// NewService 创建 Stormy 对话服务
func NewService(cfg *config.Config, db *gorm.DB, retriever *knowledge.Retriever) (*Service, error) {
	chatModel, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: &cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &Service{
		cfg:         cfg,
		db:          db,
		retriever:   retriever,
		chatModel:   chatModel,
		promptCache: NewPromptCache(time.Duration(cfg.Chat.PromptCacheTTL) * time.Second),
	}, nil
}

// Chat 处理一次对话
func (s *Service) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	// 1. 确定会话
	conversationID, err := s.ensureConversation(req)
	if err != nil {
		return nil, err
	}

	// 2. 检索知识库上下文（失败降级为无上下文）
	results := s.retriever.HybridSearch(ctx, req.Message, 0)
	contextBlock := knowledge.FormatSearchResultsForContext(results, s.cfg.Knowledge.ContextBudget)

	var contextDocs []uint
	seen := make(map[uint]bool)
	for _, res := range results {
		if !seen[res.Document.ID] {
			seen[res.Document.ID] = true
			contextDocs = append(contextDocs, res.Document.ID)
		}
	}

	// 3. 构建消息
	messages := s.buildMessages(conversationID, contextBlock, req.Message)

	// 4. 调用对话模型
	resp, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	// 5. 持久化问答记录
	s.saveExchange(conversationID, req, resp.Content, contextDocs)

	return &ChatResponse{
		Content:        resp.Content,
		ConversationID: conversationID,
		ContextDocs:    contextDocs,
	}, nil
}

// ensureConversation 没有会话时新建一个
func (s *Service) ensureConversation(req *ChatRequest) (uint, error) {
	if req.ConversationID != 0 {
		return req.ConversationID, nil
	}

	title := []rune(req.Message)
	if len(title) > 50 {
		title = title[:50]
	}
	conv := &model.Conversation{
		Username:      req.Username,
		Title:         string(title),
		LastMessageAt: time.Now(),
	}
	if err := s.db.Create(conv).Error; err != nil {
		return 0, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv.ID, nil
}

// buildMessages 拼装对话模型的输入消息
func (s *Service) buildMessages(conversationID uint, contextBlock, userMessage string) []*schema.Message {
	systemPrompt := s.promptCache.Get(func() string {
		return s.cfg.Chat.SystemPrompt
	})
	if contextBlock != "" {
		systemPrompt = systemPrompt + "\n\n# Knowledge Base Context\n\n" + contextBlock
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
	}

	// 加载对话历史
	for _, log := range s.loadHistory(conversationID) {
		role := schema.User
		if log.ChatType == model.ChatTypeAssistant {
			role = schema.Assistant
		}
		messages = append(messages, &schema.Message{Role: role, Content: log.Content})
	}

	messages = append(messages, &schema.Message{Role: schema.User, Content: userMessage})
	return messages
}

// loadHistory 读取会话最近的消息（时间正序）
func (s *Service) loadHistory(conversationID uint) []model.ChatLog {
	var logs []model.ChatLog
	if err := s.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(historyLimit).
		Find(&logs).Error; err != nil {
		logx.Warn("Failed to load conversation history: %v", err)
		return nil
	}

	// 反转顺序（因为是 DESC 查询）
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs
}

// saveExchange 保存一轮问答，失败只记日志
func (s *Service) saveExchange(conversationID uint, req *ChatRequest, answer string, contextDocs []uint) {
	userLog := &model.ChatLog{
		Username:       req.Username,
		ChatType:       model.ChatTypeUser,
		ConversationID: conversationID,
		Content:        req.Message,
	}
	if err := s.db.Create(userLog).Error; err != nil {
		logx.Warn("Failed to save user message: %v", err)
	}

	docsJSON, _ := json.Marshal(contextDocs)
	assistantLog := &model.ChatLog{
		Username:       req.Username,
		ChatType:       model.ChatTypeAssistant,
		ParentID:       userLog.ID,
		ConversationID: conversationID,
		Content:        answer,
		ContextDocs:    string(docsJSON),
	}
	if err := s.db.Create(assistantLog).Error; err != nil {
		logx.Warn("Failed to save assistant message: %v", err)
	}

	if err := s.db.Model(&model.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_at", time.Now()).Error; err != nil {
		logx.Warn("Failed to update conversation timestamp: %v", err)
	}
}
