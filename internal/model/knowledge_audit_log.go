package model

import "time"

// 审计动作
const (
	AuditActionCreate  = "create"
	AuditActionUpdate  = "update"
	AuditActionDelete  = "delete"
	AuditActionApprove = "approve"
	AuditActionUpload  = "upload"
)

// KnowledgeAuditLog 知识库审计日志（只追加，不更新不删除）
type KnowledgeAuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
	Action     string    `json:"action" gorm:"size:20;not null;index"` // create/update/delete/approve/upload
	Actor      string    `json:"actor" gorm:"size:100;index"`
	DocumentID uint      `json:"document_id" gorm:"index"`
	Before     string    `json:"before" gorm:"type:text"` // 变更前快照（JSON）
	After      string    `json:"after" gorm:"type:text"`  // 变更后快照（JSON）
	RequestID  string    `json:"request_id" gorm:"size:64"`
	ClientIP   string    `json:"client_ip" gorm:"size:64"`
}

// TableName 指定表名
func (KnowledgeAuditLog) TableName() string {
	return "knowledge_audit_logs"
}
