package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"club-bookings/backend/config"
	"club-bookings/backend/internal/api/handler"
	"club-bookings/backend/internal/api/router"
	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/repository"
	"club-bookings/backend/internal/service"
	"club-bookings/backend/pkg/database"
	"club-bookings/backend/pkg/jwt"
	applogger "club-bookings/backend/pkg/logger"
	"club-bookings/backend/pkg/mailer"
	"club-bookings/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml 或 ./config.yaml）")
	rollback := flag.Int("migrate-down", 0, "回滚指定步数的数据库迁移后退出")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Server.Timezone),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level == "debug", logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}

	// 3.1 回滚模式：执行后直接退出
	if *rollback > 0 {
		if err := database.RollbackMigrations(sqlDB, *rollback, logger); err != nil {
			logger.Fatal("数据库迁移回滚失败", zap.Error(err))
		}
		_ = sqlDB.Close()
		return
	}

	// 3.2 执行数据库迁移
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用", zap.Error(err))
		rdb = nil
	}
	var tokens service.TokenStore
	if rdb != nil {
		tokens = rdb
	}

	// 5. 邮件通知（mail.from_email 未配置时只记日志）
	var notifier service.Notifier
	m, err := mailer.New(context.Background(), &cfg.Mail, cfg.Server.BaseURL, logger)
	if err != nil {
		logger.Warn("邮件服务初始化失败，报名通知将不会发送", zap.Error(err))
	} else if m.Enabled() {
		notifier = m
	}

	// 6. 请求校验规则
	if err := dto.RegisterValidators(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}

	// 7. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, tokens, notifier, logger)
	h := handler.NewHandler(cfg, svc)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, db, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
}
