package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-bookings/backend/internal/service"
	"club-bookings/backend/pkg/response"
)

// DashboardHandler 面板 HTTP 处理器
type DashboardHandler struct {
	dashboardSvc service.DashboardService
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(dashboardSvc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardSvc: dashboardSvc}
}

// Parent 家长面板
// GET /api/v1/dashboard/parent
func (h *DashboardHandler) Parent(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.dashboardSvc.Parent(c.Request.Context(), userID)
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, data)
}

// Teacher 教师面板
// GET /api/v1/dashboard/teacher
func (h *DashboardHandler) Teacher(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, err := h.dashboardSvc.Teacher(c.Request.Context(), userID)
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}
	response.OK(c, data)
}

func (h *DashboardHandler) handleDashboardError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUserNotFound) {
		response.NotFound(c, 11004, err.Error())
		return
	}
	response.InternalError(c)
}
