package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/knowledge"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

// CategoryHandler 知识库分类 API Handler
type CategoryHandler struct {
	store *knowledge.Store
}

// NewCategoryHandler 创建分类 Handler
func NewCategoryHandler(store *knowledge.Store) *CategoryHandler {
	return &CategoryHandler{store: store}
}

// RegisterRoutes 注册路由
func (h *CategoryHandler) RegisterRoutes(r *gin.RouterGroup) {
	cg := r.Group("/knowledge/categories")
	{
		cg.GET("", h.ListCategories)
		cg.POST("", h.CreateCategory)
		cg.PUT("/:id", h.UpdateCategory)
		cg.DELETE("/:id", h.DeleteCategory)
	}
}

// ListCategories 获取分类列表
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	var enabled *bool
	if v := c.Query("enabled"); v != "" {
		e := v == "true"
		enabled = &e
	}

	cats, err := h.store.ListCategories(enabled)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": cats,
	})
}

// CreateCategory 创建分类
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req knowledge.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	cat := &model.KnowledgeCategory{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		Icon:        req.Icon,
		Color:       req.Color,
		Enabled:     enabled,
		SortOrder:   req.SortOrder,
	}
	if err := h.store.CreateCategory(cat); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{"id": cat.ID},
	})
}

// UpdateCategory 更新分类
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	var req knowledge.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "error": err.Error()})
		return
	}

	if err := h.store.UpdateCategory(uint(id), &req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "updated"})
}

// DeleteCategory 删除分类
// 引用该分类的文档不会被删除，由管理员重新归类
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("id"), 10, 32)

	if err := h.store.DeleteCategory(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": 200, "message": "deleted"})
}
