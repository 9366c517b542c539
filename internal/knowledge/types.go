package knowledge

import "github.com/Rezzyman/WINNSTORM-sub000/internal/model"

// SearchResult 检索结果（命中的分块及其所属文档）
type SearchResult struct {
	Document   *model.KnowledgeDocument `json:"document"`
	Chunk      string                   `json:"chunk"`
	ChunkIndex int                      `json:"chunk_index"`
	Similarity float64                  `json:"similarity"`
}

// CreateDocumentRequest 创建文档请求
type CreateDocumentRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	CategoryID  *uint  `json:"category_id"`
	DocType     string `json:"doc_type"`
	Content     string `json:"content"`
	Public      bool   `json:"public"`
	Metadata    string `json:"metadata"`
}

// UpdateDocumentRequest 更新文档请求
type UpdateDocumentRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	CategoryID  *uint  `json:"category_id"`
	DocType     string `json:"doc_type"`
	Content     string `json:"content"`
	Enabled     *bool  `json:"enabled"`
	Public      *bool  `json:"public"`
	Metadata    string `json:"metadata"`
}

// CategoryRequest 分类创建/更新请求
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Enabled     *bool  `json:"enabled"`
	SortOrder   int    `json:"sort_order"`
}

// AuditMeta 审计所需的请求元信息
type AuditMeta struct {
	Actor     string
	RequestID string
	ClientIP  string
}
