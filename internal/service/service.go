package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"club-bookings/backend/config"
	"club-bookings/backend/internal/repository"
	"club-bookings/backend/internal/rules"
	"club-bookings/backend/pkg/jwt"
	"club-bookings/backend/pkg/mailer"
)

// TokenStore Token 黑名单存储（Redis 实现见 pkg/redis）
type TokenStore interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Notifier 报名通知发送（SES 实现见 pkg/mailer）
type Notifier interface {
	EnrollmentConfirmed(ctx context.Context, n mailer.EnrollmentNotice) error
	EnrollmentCancelled(ctx context.Context, n mailer.EnrollmentNotice) error
}

// Clock 业务时间来源：校验中的"今天"按业务时区计算
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// NewClock 创建 Clock；now 为 nil 时使用 time.Now
func NewClock(now func() time.Time, loc *time.Location) Clock {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return Clock{now: now, loc: loc}
}

// Now 业务时区下的当前时间
func (c Clock) Now() time.Time { return c.now().In(c.loc) }

// Today 业务时区下的今天零点
func (c Clock) Today() time.Time { return rules.DateOnly(c.Now()) }

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Child      ChildService
	Club       ClubService
	Enrollment EnrollmentService
	Dashboard  DashboardService
	Export     ExportService
}

// NewService 创建 Service 聚合
// tokens 与 notifier 可为 nil（Redis 不可用 / 邮件未启用）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	clock := NewClock(time.Now, cfg.Server.Location())
	if !cfg.Feature.EnrollmentEmails {
		notifier = nil
	}
	return &Service{
		Auth:       NewAuthService(repo, jwtMgr, tokens, logger),
		Child:      NewChildService(repo, cfg.Feature, clock, logger),
		Club:       NewClubService(repo, cfg.Feature, clock, logger),
		Enrollment: NewEnrollmentService(repo, notifier, clock, logger),
		Dashboard:  NewDashboardService(repo, clock, logger),
		Export:     NewExportService(repo, clock, logger),
	}
}
