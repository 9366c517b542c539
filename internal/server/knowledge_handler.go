package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/config"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/knowledge"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

// KnowledgeHandler 知识库 API Handler
type KnowledgeHandler struct {
	store     *knowledge.Store
	pipeline  *knowledge.Pipeline
	retriever *knowledge.Retriever
	config    *config.Config
}

// NewKnowledgeHandler 创建知识库 Handler
func NewKnowledgeHandler(store *knowledge.Store, pipeline *knowledge.Pipeline, retriever *knowledge.Retriever, cfg *config.Config) *KnowledgeHandler {
	return &KnowledgeHandler{
		store:     store,
		pipeline:  pipeline,
		retriever: retriever,
		config:    cfg,
	}
}

// RegisterRoutes 注册路由
func (h *KnowledgeHandler) RegisterRoutes(r *gin.RouterGroup) {
	kg := r.Group("/knowledge")
	{
		kg.GET("/documents", h.ListDocuments)
		kg.GET("/documents/export", h.ExportDocuments)
		kg.GET("/documents/:id", h.GetDocument)
		kg.GET("/documents/:id/preview", h.PreviewDocument)
		kg.GET("/documents/:id/embeddings", h.GetDocumentEmbeddings)
		kg.POST("/documents", h.CreateDocument)
		kg.PUT("/documents/:id", h.UpdateDocument)
		kg.DELETE("/documents/:id", h.DeleteDocument)
		kg.PATCH("/documents/:id/toggle", h.ToggleDocument)
		kg.POST("/documents/:id/approve", h.ApproveDocument)

		kg.GET("/stats", h.GetStats)
		kg.GET("/audit", h.ListAuditLogs)
		kg.POST("/search", h.SearchDocuments)
	}
}

// ListDocuments 获取文档列表
func (h *KnowledgeHandler) ListDocuments(c *gin.Context) {
	var categoryID *uint
	if v := c.Query("category_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": "invalid category_id"})
			return
		}
		cid := uint(id)
		categoryID = &cid
	}

	var enabled *bool
	if v := c.Query("enabled"); v != "" {
		e := v == "true"
		enabled = &e
	}

	docs, err := h.store.ListDocuments(categoryID, c.Query("doc_type"), enabled)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": docs,
	})
}

// GetDocument 获取单个文档
func (h *KnowledgeHandler) GetDocument(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	doc, err := h.store.GetDocumentByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": doc,
	})
}

// CreateDocument 创建文档（上传后处于未审批状态）
func (h *KnowledgeHandler) CreateDocument(c *gin.Context) {
	var req knowledge.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": err.Error()})
		return
	}

	if req.DocType != "" && !model.IsValidDocType(req.DocType) {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": fmt.Sprintf("invalid doc_type: %s", req.DocType)})
		return
	}

	meta := auditMeta(c)
	doc := &model.KnowledgeDocument{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		DocType:     req.DocType,
		Content:     req.Content,
		Public:      req.Public,
		Enabled:     true,
		UploadedBy:  meta.Actor,
		Metadata:    req.Metadata,
	}

	if err := h.store.CreateDocument(doc, meta); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"id": doc.ID},
	})
}

// UpdateDocument 更新文档
func (h *KnowledgeHandler) UpdateDocument(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	var req knowledge.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": err.Error()})
		return
	}

	if req.DocType != "" && !model.IsValidDocType(req.DocType) {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": fmt.Sprintf("invalid doc_type: %s", req.DocType)})
		return
	}

	doc, err := h.store.UpdateDocument(uint(id), &req, auditMeta(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "data": doc})
}

// DeleteDocument 删除文档（级联删除向量与文件，写审计）
func (h *KnowledgeHandler) DeleteDocument(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	if err := h.store.DeleteDocument(uint(id), auditMeta(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "deleted"})
}

// ToggleDocument 启用/禁用文档
func (h *KnowledgeHandler) ToggleDocument(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": err.Error()})
		return
	}

	if err := h.store.SetDocumentEnabled(uint(id), req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "toggled"})
}

// ApproveDocument 审批文档并同步生成向量
// 向量生成结果作为响应字段返回，生成失败不会让审批请求失败
func (h *KnowledgeHandler) ApproveDocument(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	doc, err := h.store.ApproveDocument(uint(id), auditMeta(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	// 同步生成向量，耗时与文档长度成正比
	generated := h.pipeline.GenerateDocumentEmbeddings(c.Request.Context(), uint(id))

	// 重新读取拿到最新的处理状态
	doc, err = h.store.GetDocumentByID(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"document":            doc,
			"embedding_generated": generated,
		},
	})
}

// GetDocumentEmbeddings 按分块顺序查看文档的向量记录
func (h *KnowledgeHandler) GetDocumentEmbeddings(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	embs, err := h.store.GetEmbeddingsByDocument(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	// 向量本体太大，列表只返回分块信息
	type chunkInfo struct {
		ChunkIndex int    `json:"chunk_index"`
		ChunkText  string `json:"chunk_text"`
		TokenCount int    `json:"token_count"`
	}
	chunks := make([]chunkInfo, 0, len(embs))
	for _, e := range embs {
		chunks = append(chunks, chunkInfo{
			ChunkIndex: e.ChunkIndex,
			ChunkText:  e.ChunkText,
			TokenCount: e.TokenCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"document_id": id, "chunks": chunks},
	})
}

// SearchDocuments 混合检索
func (h *KnowledgeHandler) SearchDocuments(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
		Limit int    `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": err.Error()})
		return
	}

	results := h.retriever.HybridSearch(c.Request.Context(), req.Query, req.Limit)

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"results": results,
			"query":   req.Query,
			"total":   len(results),
		},
	})
}

// PreviewDocument 渲染文档内容为 HTML（Markdown 预览）
func (h *KnowledgeHandler) PreviewDocument(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	doc, err := h.store.GetDocumentByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(doc.Content), &buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"title": doc.Title,
			"html":  buf.String(),
		},
	})
}

// ExportDocuments 导出文档清单为 Excel
func (h *KnowledgeHandler) ExportDocuments(c *gin.Context) {
	docs, err := h.store.ListDocuments(nil, "", nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Documents"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Title", "Type", "Category", "Status", "Approved By", "Approved At", "Version", "Embeddings", "Uploaded By", "Created At"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, doc := range docs {
		category := ""
		if doc.Category != nil {
			category = doc.Category.Name
		}
		approvedAt := ""
		if doc.ApprovedAt != nil {
			approvedAt = doc.ApprovedAt.Format("2006-01-02 15:04:05")
		}
		values := []any{
			doc.ID, doc.Title, doc.DocType, category, doc.ProcessingStatus,
			doc.ApprovedBy, approvedAt, doc.Version, doc.EmbeddingCount,
			doc.UploadedBy, doc.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	filename := fmt.Sprintf("knowledge-documents-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// ListAuditLogs 查询审计日志
func (h *KnowledgeHandler) ListAuditLogs(c *gin.Context) {
	var docID uint
	if v := c.Query("document_id"); v != "" {
		id, _ := strconv.ParseUint(v, 10, 32)
		docID = uint(id)
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	logs, err := h.store.ListAuditLogs(docID, c.Query("action"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": logs,
	})
}

// GetStats 获取统计信息
func (h *KnowledgeHandler) GetStats(c *gin.Context) {
	stats, err := h.store.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": stats,
	})
}
