package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// AuthHandler 认证处理器
type AuthHandler struct {
	db *gorm.DB
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db}
}

// RegisterRoutes 注册路由
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	UserInfo    UserInfoData `json:"userInfo"`
}

// UserInfoData 用户信息
type UserInfoData struct {
	ID       uint     `json:"id"`
	Username string   `json:"username"`
	Nickname string   `json:"nickname"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Code:    400,
			Message: "invalid request: " + err.Error(),
		})
		return
	}

	// 查询用户
	var user model.User
	if err := h.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusOK, Response{
			Code:    401,
			Message: "invalid username or password",
		})
		return
	}

	// 检查用户是否启用
	if !user.Enabled {
		c.JSON(http.StatusOK, Response{
			Code:    403,
			Message: "user is disabled",
		})
		return
	}

	// 验证密码
	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusOK, Response{
			Code:    401,
			Message: "invalid username or password",
		})
		return
	}

	// 解析角色列表
	var roles []string
	if user.Roles != "" {
		roles = strings.Split(user.Roles, ",")
	} else {
		roles = []string{"user"}
	}

	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "login success",
		Data: LoginResponse{
			AccessToken: uuid.NewString(),
			UserInfo: UserInfoData{
				ID:       user.ID,
				Username: user.Username,
				Nickname: user.Nickname,
				Email:    user.Email,
				Roles:    roles,
			},
		},
	})
}
