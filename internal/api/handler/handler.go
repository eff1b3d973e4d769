package handler

import (
	"club-bookings/backend/config"
	"club-bookings/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Child      *ChildHandler
	Club       *ClubHandler
	Enrollment *EnrollmentHandler
	Dashboard  *DashboardHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, &cfg.Auth),
		Child:      NewChildHandler(svc.Child),
		Club:       NewClubHandler(svc.Club),
		Enrollment: NewEnrollmentHandler(svc.Enrollment),
		Dashboard:  NewDashboardHandler(svc.Dashboard),
		Export:     NewExportHandler(svc.Export),
	}
}
