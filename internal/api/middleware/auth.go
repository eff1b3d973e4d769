package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"club-bookings/backend/pkg/jwt"
	"club-bookings/backend/pkg/response"
)

// TokenBlacklist 已注销 Token 查询（Redis 实现见 pkg/redis）
type TokenBlacklist interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，
// blacklist 为 nil 时跳过黑名单检查（Redis 不可用时降级）
func JWTAuth(jwtMgr *jwt.Manager, blacklist TokenBlacklist, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, "invalid authorization header")
			return
		}

		claims, err := jwtMgr.ParseToken(strings.TrimSpace(token))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		if claims.TokenType != jwt.TokenTypeAccess {
			abortUnauthorized(c, "invalid token type")
			return
		}

		if blacklist != nil && claims.ID != "" {
			revoked, err := blacklist.IsBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				// Redis 出错时放行，只记日志
				logger.Warn("查询 Token 黑名单失败", zap.String("jti", claims.ID), zap.Error(err))
			} else if revoked {
				abortUnauthorized(c, "token has been revoked")
				return
			}
		}

		// 将用户信息注入上下文
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("claims", claims)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString("role")
		if userRole == "" {
			abortUnauthorized(c, "authentication required")
			return
		}

		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, response.CodeForbidden, "you do not have permission to access this resource")
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	response.Unauthorized(c, response.CodeUnauthorized, msg)
	c.Abort()
}
