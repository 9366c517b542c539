package model

import "time"

// KnowledgeCategory 知识库分类模型（支持父子层级）
type KnowledgeCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null;size:100"`
	Description string    `json:"description" gorm:"size:500"`
	ParentID    *uint     `json:"parent_id" gorm:"index"` // 自引用，构成分类树
	Icon        string    `json:"icon" gorm:"size:50"`
	Color       string    `json:"color" gorm:"size:20"`
	Enabled     bool      `json:"enabled" gorm:"default:true"`
	SortOrder   int       `json:"sort_order" gorm:"default:0"`
}

// TableName 指定表名
func (KnowledgeCategory) TableName() string {
	return "knowledge_categories"
}
