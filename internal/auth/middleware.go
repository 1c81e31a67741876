package auth

import (
	"github.com/gin-gonic/gin"

	"bookrag/internal/common"
)

// userContextKey 用户上下文在 gin.Context 中的键
const userContextKey = "user"

// UserContext 已认证用户上下文
type UserContext struct {
	UserID   string
	Username string
}

// AuthMiddleware JWT 认证中间件
func AuthMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.ResponseUnauthorized(c, "缺少认证令牌")
			c.Abort()
			return
		}

		token := ExtractTokenFromBearer(authHeader)
		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			common.ResponseUnauthorized(c, "令牌验证失败: "+err.Error())
			c.Abort()
			return
		}

		// 只接受访问令牌，刷新令牌不能用于访问资源
		if claims.TokenType != "access" {
			common.ResponseUnauthorized(c, "令牌类型错误")
			c.Abort()
			return
		}

		c.Set(userContextKey, &UserContext{
			UserID:   claims.UserID,
			Username: claims.Username,
		})

		c.Next()
	}
}

// GetUserContext 从 Gin Context 获取用户上下文
func GetUserContext(c *gin.Context) (*UserContext, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}

	userCtx, ok := value.(*UserContext)
	return userCtx, ok
}
