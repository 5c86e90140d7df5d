package middleware

import (
	"ThinkSync/internal/pkg/response"
	"ThinkSync/internal/pkg/security"
	"context"
	"errors"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
// revoked 存放已注销 Token 的签名，为 nil 时跳过注销检查
func AuthMiddleware(revoked redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, ok := authenticate(c, revoked, tokenString)
		if !ok {
			c.Abort()
			return
		}

		SetUser(c, claims.UserID, claims.Roles)
		c.Next()
	}
}

// authenticate 校验 Token，失败时已写出响应
func authenticate(c *gin.Context, revoked redis.Cmdable, tokenString string) (*security.UserClaims, bool) {
	signature, err := security.ExtractSignature(tokenString)
	if err != nil {
		response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
		return nil, false
	}

	if revoked != nil {
		err := revoked.Get(c.Request.Context(), signature).Err()
		switch {
		case err == nil:
			response.Fail(c, response.Unauthorized, "Token 无效或已过期")
			return nil, false
		case !errors.Is(err, redis.Nil):
			log.ErrorContext(c.Request.Context(), "查询 Token 黑名单失败", "err", err)
			response.Fail(c, response.InternalServerError, "未知错误")
			return nil, false
		}
	}

	claims, err := security.ValidateToken(tokenString)
	if err != nil {
		response.Fail(c, response.Unauthorized, "Token 无效或已过期")
		return nil, false
	}
	return claims, true
}

// QueryTokenAuth WebSocket 握手无法携带 Header，从 query 中读取 token
func QueryTokenAuth(revoked redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.Fail(c, response.Unauthorized, "Token 缺失或格式错误")
			c.Abort()
			return
		}
		claims, ok := authenticate(c, revoked, token)
		if !ok {
			c.Abort()
			return
		}
		SetUser(c, claims.UserID, claims.Roles)
		c.Next()
	}
}

// SetUser 注入当前用户，日志 ContextHandler 从 Request Context 中读取 user_id
func SetUser(c *gin.Context, userID uint64, roles []string) {
	c.Set("user_id", userID)
	c.Set("roles", roles)

	newCtx := context.WithValue(c.Request.Context(), "user_id", userID)
	c.Request = c.Request.WithContext(newCtx)
}
