package model

import "time"

// KnowledgeEmbedding 文档分块向量模型
// 同一文档的记录要么为空，要么是 chunk_index 从 0 开始连续覆盖全文的完整集合，
// 重新审批时先整体删除再重建，不持久化中间态。
type KnowledgeEmbedding struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	DocumentID uint      `json:"document_id" gorm:"not null;index"`
	ChunkIndex int       `json:"chunk_index" gorm:"not null"` // 0 起始，决定重建顺序
	ChunkText  string    `json:"chunk_text" gorm:"type:text"`
	Embedding  string    `json:"embedding" gorm:"type:text"` // JSON 格式的向量
	TokenCount int       `json:"token_count"`                // 近似 token 数

	Document KnowledgeDocument `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (KnowledgeEmbedding) TableName() string {
	return "knowledge_embeddings"
}
