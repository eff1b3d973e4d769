package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/rules"
	"club-bookings/backend/pkg/jwt"
	"club-bookings/backend/pkg/response"
)

const msgUnauthenticated = "authentication required"

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

// MustGetClaims 提取 JWT 中间件解析出的完整 claims（登出时需要 jti 与过期时间）
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get("claims")
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, msgUnauthenticated)
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	if !ok || claims == nil {
		response.Unauthorized(c, response.CodeUnauthorized, msgUnauthenticated)
		return nil, false
	}
	return claims, true
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, response.CodeUnauthorized, msgUnauthenticated)
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, response.CodeUnauthorized, msgUnauthenticated)
		return "", false
	}
	return s, true
}

// pathID 读取路径参数 :id；不是合法 UUID 时按资源不存在返回 404
func pathID(c *gin.Context, code int, notFound error) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(c, code, notFound.Error())
		return "", false
	}
	return id, true
}

// ── 请求校验失败 ──

// bindFailed 参数绑定失败：校验类错误返回 422 + 字段表，JSON 格式错误返回 400
func bindFailed(c *gin.Context, err error) {
	if fields, ok := dto.BindingErrors(err); ok {
		response.Unprocessable(c, response.CodeInvalidParam, "validation failed",
			dto.ValidationErrorData{Errors: fields})
		return
	}
	response.BadRequest(c, response.CodeInvalidParam, "invalid request")
}

// writeValidation 业务校验错误原样返回 422；不是校验错误时返回 false
func writeValidation(c *gin.Context, code int, err error) bool {
	var fields rules.FieldErrors
	if errors.As(err, &fields) {
		response.Unprocessable(c, code, "validation failed", dto.ValidationErrorData{Errors: fields})
		return true
	}
	var rej *rules.Rejection
	if errors.As(err, &rej) {
		response.Unprocessable(c, code, rej.Message, dto.RejectionData{
			Reason:         string(rej.Reason),
			ConflictClubID: rej.ConflictClubID,
		})
		return true
	}
	return false
}
