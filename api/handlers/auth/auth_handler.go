package auth

import (
	"errors"

	"github.com/gin-gonic/gin"

	"bookrag/internal/account"
	"bookrag/internal/common"
)

// AuthHandler 认证相关接口
type AuthHandler struct {
	accounts *account.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(accounts *account.Service) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register 注册新用户
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, err := h.accounts.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrUsernameTaken) {
			common.ResponseError(c, common.CodeConflict, err.Error())
			return
		}
		common.ResponseServerError(c, "注册失败")
		return
	}

	common.ResponseCreated(c, gin.H{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login 登录并签发令牌对
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	user, pair, err := h.accounts.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			common.ResponseUnauthorized(c, err.Error())
			return
		}
		common.ResponseServerError(c, "登录失败")
		return
	}

	common.ResponseSuccess(c, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
		},
		"tokens": pair,
	})
}

// Refresh 刷新令牌
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseBadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	pair, err := h.accounts.Refresh(req.RefreshToken)
	if err != nil {
		common.ResponseUnauthorized(c, "刷新令牌无效")
		return
	}

	common.ResponseSuccess(c, gin.H{"tokens": pair})
}
