package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"club-bookings/backend/pkg/response"
)

// CodeBodyTooLarge 请求体超限
const CodeBodyTooLarge = 10005

// BodyLimit 全局请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数（如 1<<20 = 1MB）。
// 声明了 Content-Length 的请求直接按长度拒绝，其余由 MaxBytesReader 在读取时截断
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "request body too large")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
