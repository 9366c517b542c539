package model

import "time"

// 消息类型
const (
	ChatTypeUser      = 1 // 用户提问
	ChatTypeAssistant = 2 // Stormy 回答
)

// ChatLog 对话记录模型
type ChatLog struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at" gorm:"index"`
	Username       string     `json:"username" gorm:"index;size:100"`
	ChatType       int        `json:"chat_type" gorm:"index"` // 1=用户提问, 2=Stormy回答
	ParentID       uint       `json:"parent_id"`              // 父消息ID
	ConversationID uint       `json:"conversation_id" gorm:"index"`
	Content        string     `json:"content" gorm:"type:text"`
	ContextDocs    string     `json:"context_docs" gorm:"type:text"` // 本次回答引用的文档ID列表（JSON）
}

// TableName 指定表名
func (ChatLog) TableName() string {
	return "chat_logs"
}
