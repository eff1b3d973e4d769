package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-bookings/backend/config"
	"club-bookings/backend/internal/api/handler"
	"club-bookings/backend/internal/api/middleware"
	"club-bookings/backend/internal/rules"
	"club-bookings/backend/pkg/jwt"
	"club-bookings/backend/pkg/redis"
)

// 登录/注册限流：每个 IP 每分钟 10 次
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
	maxBodyBytes   = 1 << 20
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时 Token 黑名单与限流降级为不生效
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	var (
		blacklist middleware.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist, limiter = rdb, rdb
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", health(db, rdb))

	parent := middleware.RoleAuth(rules.RoleParent)
	teacher := middleware.RoleAuth(rules.RoleTeacher)
	authLimit := middleware.RateLimit(limiter, authRateLimit, authRateWindow, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", authLimit, h.Auth.Signup)
			auth.POST("/login", authLimit, h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 面板
			authorized.GET("/dashboard/parent", parent, h.Dashboard.Parent)
			authorized.GET("/dashboard/teacher", teacher, h.Dashboard.Teacher)

			// 儿童模块（家长）
			children := authorized.Group("/children", parent)
			{
				children.GET("", h.Child.List)
				children.POST("", h.Child.Create)
				children.GET("/:id", h.Child.Get)
				children.PUT("/:id", h.Child.Update)
				children.DELETE("/:id", h.Child.Delete)
				children.GET("/:id/calendar.ics", h.Export.ChildCalendar)
			}

			// 社团模块：所有登录用户可浏览，教师可管理自己创建的社团（Service 层鉴权）
			clubs := authorized.Group("/clubs")
			{
				clubs.GET("", h.Club.List)
				clubs.GET("/mine", teacher, h.Club.ListMine)
				clubs.POST("", teacher, h.Club.Create)
				clubs.GET("/:id", h.Club.Get)
				clubs.PUT("/:id", teacher, h.Club.Update)
				clubs.DELETE("/:id", teacher, h.Club.Delete)
				clubs.GET("/:id/eligibility", parent, h.Enrollment.Eligibility)
				clubs.GET("/:id/roster.xlsx", teacher, h.Export.ClubRoster)
			}

			// 报名模块（家长）
			enrollments := authorized.Group("/enrollments", parent)
			{
				enrollments.GET("", h.Enrollment.List)
				enrollments.POST("", h.Enrollment.Create)
				enrollments.POST("/:id/cancel", h.Enrollment.Cancel)
			}
		}
	}

	return r
}

// health 存活检查：数据库不可达时返回 503，Redis 只作为附加信息
func health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "ok"}
		code := http.StatusOK

		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
				status["status"], status["database"] = "degraded", "unreachable"
				code = http.StatusServiceUnavailable
			}
		}
		switch {
		case rdb == nil:
			status["redis"] = "disabled"
		case rdb.Ping(ctx) != nil:
			status["redis"] = "unreachable"
		default:
			status["redis"] = "ok"
		}

		c.JSON(code, status)
	}
}
