package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/service"
	"club-bookings/backend/pkg/response"
)

// EnrollmentHandler 报名模块 HTTP 处理器（家长）
type EnrollmentHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollmentSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentSvc: enrollmentSvc}
}

// Eligibility 报名资格预检，不满足时 eligible=false 并给出原因
// GET /api/v1/clubs/:id/eligibility?child_id=
func (h *EnrollmentHandler) Eligibility(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, 13001, service.ErrClubNotFound)
	if !ok {
		return
	}

	var query dto.EligibilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.enrollmentSvc.Check(c.Request.Context(), parentID, id, query.ChildID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}
	response.OK(c, result)
}

// List 名下儿童的报名记录
// GET /api/v1/enrollments?status=&child_id=
func (h *EnrollmentHandler) List(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var query dto.EnrollmentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindFailed(c, err)
		return
	}

	enrollments, err := h.enrollmentSvc.List(c.Request.Context(), parentID, &query)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}
	response.OK(c, enrollments)
}

// Create 为名下儿童报名社团
// POST /api/v1/enrollments
func (h *EnrollmentHandler) Create(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	enrollment, err := h.enrollmentSvc.Enroll(c.Request.Context(), parentID, &req)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Cancel 取消报名
// POST /api/v1/enrollments/:id/cancel
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, 14001, service.ErrEnrollmentNotFound)
	if !ok {
		return
	}

	enrollment, err := h.enrollmentSvc.Cancel(c.Request.Context(), parentID, id)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}
	response.OK(c, enrollment)
}

func (h *EnrollmentHandler) handleEnrollmentError(c *gin.Context, err error) {
	if writeValidation(c, 14000, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrChildNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrChildForbidden):
		response.Forbidden(c, 12002, err.Error())
	case errors.Is(err, service.ErrClubNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrEnrollmentNotFound):
		response.NotFound(c, 14001, err.Error())
	case errors.Is(err, service.ErrEnrollmentForbidden):
		response.Forbidden(c, 14002, err.Error())
	case errors.Is(err, service.ErrEnrollmentNotActive):
		response.Conflict(c, 14003, err.Error())
	default:
		response.InternalError(c)
	}
}
