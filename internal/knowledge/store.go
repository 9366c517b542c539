package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"gorm.io/gorm"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

// ErrDocumentNotFound 文档不存在
var ErrDocumentNotFound = errors.New("document not found")

// Store 知识库存储层，负责文档、分类、向量与审计日志的持久化
type Store struct {
	db *gorm.DB
}

// NewStore 创建知识库存储层
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB 获取底层数据库连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// CreateDocument 创建文档（未审批状态）
func (s *Store) CreateDocument(doc *model.KnowledgeDocument, meta AuditMeta) error {
	if doc.DocType == "" {
		doc.DocType = model.DocTypeOther
	}
	doc.ProcessingStatus = model.ProcessingPending
	doc.Version = 1

	if err := s.db.Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	s.appendAudit(model.AuditActionCreate, doc.ID, "", snapshot(doc), meta)
	logx.Info("✅ Created knowledge document: %s (ID: %d)", doc.Title, doc.ID)
	return nil
}

// GetDocumentByID 根据 ID 获取文档
func (s *Store) GetDocumentByID(docID uint) (*model.KnowledgeDocument, error) {
	var doc model.KnowledgeDocument
	if err := s.db.Preload("Category").First(&doc, docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// ListDocuments 列出文档
func (s *Store) ListDocuments(categoryID *uint, docType string, enabled *bool) ([]model.KnowledgeDocument, error) {
	query := s.db.Model(&model.KnowledgeDocument{}).Preload("Category")

	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	if docType != "" {
		query = query.Where("doc_type = ?", docType)
	}
	if enabled != nil {
		query = query.Where("enabled = ?", *enabled)
	}

	var docs []model.KnowledgeDocument
	if err := query.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// UpdateDocument 更新文档，版本号递增
func (s *Store) UpdateDocument(docID uint, req *UpdateDocumentRequest, meta AuditMeta) (*model.KnowledgeDocument, error) {
	doc, err := s.GetDocumentByID(docID)
	if err != nil {
		return nil, err
	}
	before := snapshot(doc)

	updates := map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"category_id": req.CategoryID,
		"content":     req.Content,
		"version":     doc.Version + 1,
	}
	if req.DocType != "" {
		updates["doc_type"] = req.DocType
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if req.Public != nil {
		updates["public"] = *req.Public
	}
	if req.Metadata != "" {
		updates["metadata"] = req.Metadata
	}

	if err := s.db.Model(doc).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	updated, err := s.GetDocumentByID(docID)
	if err != nil {
		return nil, err
	}

	s.appendAudit(model.AuditActionUpdate, docID, before, snapshot(updated), meta)
	logx.Info("✅ Updated knowledge document: ID %d (version %d)", docID, updated.Version)
	return updated, nil
}

// ApproveDocument 审批文档，记录审批人与时间
func (s *Store) ApproveDocument(docID uint, meta AuditMeta) (*model.KnowledgeDocument, error) {
	doc, err := s.GetDocumentByID(docID)
	if err != nil {
		return nil, err
	}
	before := snapshot(doc)

	now := time.Now()
	updates := map[string]any{
		"approved_by":       meta.Actor,
		"approved_at":       &now,
		"processing_status": model.ProcessingPending,
		"processing_error":  "",
	}
	if err := s.db.Model(doc).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to approve document: %w", err)
	}

	approved, err := s.GetDocumentByID(docID)
	if err != nil {
		return nil, err
	}

	s.appendAudit(model.AuditActionApprove, docID, before, snapshot(approved), meta)
	logx.Info("✅ Approved knowledge document: ID %d by %s", docID, meta.Actor)
	return approved, nil
}

// DeleteDocument 删除文档，级联删除向量与底层文件
func (s *Store) DeleteDocument(docID uint, meta AuditMeta) error {
	doc, err := s.GetDocumentByID(docID)
	if err != nil {
		return err
	}
	before := snapshot(doc)

	// sqlite 迁移时禁用了外键约束，级联删除显式执行
	if err := s.DeleteEmbeddingsByDocument(docID); err != nil {
		return err
	}

	if err := s.db.Delete(&model.KnowledgeDocument{}, docID).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	// 移除底层文件
	if doc.StoragePath != "" {
		if err := os.Remove(doc.StoragePath); err != nil && !os.IsNotExist(err) {
			logx.Warn("Failed to remove stored file %s: %v", doc.StoragePath, err)
		}
	}

	s.appendAudit(model.AuditActionDelete, docID, before, "", meta)
	logx.Info("✅ Deleted knowledge document: ID %d", docID)
	return nil
}

// SetDocumentEnabled 启用/禁用文档
func (s *Store) SetDocumentEnabled(docID uint, enabled bool) error {
	result := s.db.Model(&model.KnowledgeDocument{}).
		Where("id = ?", docID).
		Update("enabled", enabled)
	if result.Error != nil {
		return fmt.Errorf("failed to toggle document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// UpdateProcessingStatus 更新文档向量化状态
func (s *Store) UpdateProcessingStatus(docID uint, status, errMsg string, embeddingCount int) error {
	updates := map[string]any{
		"processing_status": status,
		"processing_error":  errMsg,
		"embedding_count":   embeddingCount,
	}
	return s.db.Model(&model.KnowledgeDocument{}).Where("id = ?", docID).Updates(updates).Error
}

// DeleteEmbeddingsByDocument 删除文档的全部向量
func (s *Store) DeleteEmbeddingsByDocument(docID uint) error {
	if err := s.db.Where("document_id = ?", docID).Delete(&model.KnowledgeEmbedding{}).Error; err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

// CreateEmbedding 持久化单个分块向量
func (s *Store) CreateEmbedding(emb *model.KnowledgeEmbedding) error {
	if err := s.db.Create(emb).Error; err != nil {
		return fmt.Errorf("failed to create embedding: %w", err)
	}
	return nil
}

// GetEmbeddingsByDocument 按分块顺序读取文档的向量
func (s *Store) GetEmbeddingsByDocument(docID uint) ([]model.KnowledgeEmbedding, error) {
	var embs []model.KnowledgeEmbedding
	if err := s.db.Where("document_id = ?", docID).
		Order("chunk_index ASC").
		Find(&embs).Error; err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	return embs, nil
}

// GetAllEmbeddingsWithDocuments 加载全部向量及所属文档（仅启用文档）
// 全量加载线性扫描，小规模语料可接受
func (s *Store) GetAllEmbeddingsWithDocuments() ([]model.KnowledgeEmbedding, error) {
	var embs []model.KnowledgeEmbedding
	if err := s.db.Preload("Document").
		Joins("JOIN knowledge_documents d ON d.id = knowledge_embeddings.document_id").
		Where("d.enabled = ?", true).
		Find(&embs).Error; err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}
	return embs, nil
}

// SearchDocumentsByKeyword 关键词检索（LIKE 匹配标题/描述/内容）
func (s *Store) SearchDocumentsByKeyword(query string, limit int) ([]model.KnowledgeDocument, error) {
	if limit <= 0 {
		limit = 5
	}
	likePattern := "%" + query + "%"

	// 标题命中优先于描述命中，描述命中优先于正文命中
	sql := `
		SELECT *
		FROM knowledge_documents
		WHERE (title LIKE ? OR description LIKE ? OR content LIKE ?)
		AND enabled = 1
		AND approved_at IS NOT NULL
		ORDER BY
			CASE
				WHEN title LIKE ? THEN 1
				WHEN description LIKE ? THEN 2
				ELSE 3
			END
		LIMIT ?
	`

	var docs []model.KnowledgeDocument
	if err := s.db.Raw(sql,
		likePattern, likePattern, likePattern,
		likePattern, likePattern,
		limit,
	).Scan(&docs).Error; err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return docs, nil
}

// ------------------------------ 分类 ------------------------------

// CreateCategory 创建分类
func (s *Store) CreateCategory(cat *model.KnowledgeCategory) error {
	if err := s.db.Create(cat).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// UpdateCategory 更新分类
func (s *Store) UpdateCategory(catID uint, req *CategoryRequest) error {
	updates := map[string]any{
		"name":        req.Name,
		"description": req.Description,
		"parent_id":   req.ParentID,
		"icon":        req.Icon,
		"color":       req.Color,
		"sort_order":  req.SortOrder,
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}

	result := s.db.Model(&model.KnowledgeCategory{}).Where("id = ?", catID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("category not found: %d", catID)
	}
	return nil
}

// DeleteCategory 删除分类
// 不级联删除文档，引用该分类的文档 category_id 悬空，交由管理员重新归类
func (s *Store) DeleteCategory(catID uint) error {
	result := s.db.Delete(&model.KnowledgeCategory{}, catID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("category not found: %d", catID)
	}
	return nil
}

// ListCategories 列出分类
func (s *Store) ListCategories(enabled *bool) ([]model.KnowledgeCategory, error) {
	query := s.db.Model(&model.KnowledgeCategory{})
	if enabled != nil {
		query = query.Where("enabled = ?", *enabled)
	}

	var cats []model.KnowledgeCategory
	if err := query.Order("sort_order ASC, name ASC").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return cats, nil
}

// ------------------------------ 审计 ------------------------------

// appendAudit 追加审计日志（只追加，失败不阻断业务操作）
func (s *Store) appendAudit(action string, docID uint, before, after string, meta AuditMeta) {
	entry := &model.KnowledgeAuditLog{
		Action:     action,
		Actor:      meta.Actor,
		DocumentID: docID,
		Before:     before,
		After:      after,
		RequestID:  meta.RequestID,
		ClientIP:   meta.ClientIP,
	}
	if err := s.db.Create(entry).Error; err != nil {
		logx.Error("Failed to append audit log for doc %d: %v", docID, err)
	}
}

// ListAuditLogs 查询审计日志
func (s *Store) ListAuditLogs(docID uint, action string, limit int) ([]model.KnowledgeAuditLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := s.db.Model(&model.KnowledgeAuditLog{})
	if docID > 0 {
		query = query.Where("document_id = ?", docID)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var logs []model.KnowledgeAuditLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

// ------------------------------ 统计 ------------------------------

// GetStats 获取知识库统计信息
func (s *Store) GetStats() (map[string]any, error) {
	var totalDocs, approvedDocs, enabledDocs, totalEmbeddings int64

	if err := s.db.Model(&model.KnowledgeDocument{}).Count(&totalDocs).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&model.KnowledgeDocument{}).
		Where("approved_at IS NOT NULL").
		Count(&approvedDocs).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&model.KnowledgeDocument{}).
		Where("enabled = ?", true).
		Count(&enabledDocs).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&model.KnowledgeEmbedding{}).Count(&totalEmbeddings).Error; err != nil {
		return nil, err
	}

	statusCounts := make(map[string]int64)
	for _, status := range []string{model.ProcessingPending, model.ProcessingCompleted, model.ProcessingFailed} {
		var c int64
		if err := s.db.Model(&model.KnowledgeDocument{}).
			Where("processing_status = ?", status).
			Count(&c).Error; err != nil {
			return nil, err
		}
		statusCounts[status] = c
	}

	return map[string]any{
		"total_documents":    totalDocs,
		"approved_documents": approvedDocs,
		"enabled_documents":  enabledDocs,
		"total_embeddings":   totalEmbeddings,
		"processing_status":  statusCounts,
	}, nil
}

// snapshot 序列化文档快照
func snapshot(doc *model.KnowledgeDocument) string {
	data, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(data)
}
