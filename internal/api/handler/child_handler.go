package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/service"
	"club-bookings/backend/pkg/response"
)

// ChildHandler 儿童模块 HTTP 处理器（家长）
type ChildHandler struct {
	childSvc service.ChildService
}

// NewChildHandler 创建 ChildHandler
func NewChildHandler(childSvc service.ChildService) *ChildHandler {
	return &ChildHandler{childSvc: childSvc}
}

// List 当前家长名下的儿童
// GET /api/v1/children
func (h *ChildHandler) List(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	children, err := h.childSvc.List(c.Request.Context(), parentID)
	if err != nil {
		h.handleChildError(c, err)
		return
	}
	response.OK(c, children)
}

// Get 儿童详情
// GET /api/v1/children/:id
func (h *ChildHandler) Get(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, 12001, service.ErrChildNotFound)
	if !ok {
		return
	}

	child, err := h.childSvc.Get(c.Request.Context(), parentID, id)
	if err != nil {
		h.handleChildError(c, err)
		return
	}
	response.OK(c, child)
}

// Create 登记儿童
// POST /api/v1/children
func (h *ChildHandler) Create(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	child, err := h.childSvc.Create(c.Request.Context(), parentID, &req)
	if err != nil {
		h.handleChildError(c, err)
		return
	}
	response.Created(c, child)
}

// Update 编辑儿童信息
// PUT /api/v1/children/:id
func (h *ChildHandler) Update(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, 12001, service.ErrChildNotFound)
	if !ok {
		return
	}

	var req dto.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	child, err := h.childSvc.Update(c.Request.Context(), parentID, id, &req)
	if err != nil {
		h.handleChildError(c, err)
		return
	}
	response.OK(c, child)
}

// Delete 删除儿童（报名记录级联删除）
// DELETE /api/v1/children/:id
func (h *ChildHandler) Delete(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, 12001, service.ErrChildNotFound)
	if !ok {
		return
	}

	if err := h.childSvc.Delete(c.Request.Context(), parentID, id); err != nil {
		h.handleChildError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *ChildHandler) handleChildError(c *gin.Context, err error) {
	if writeValidation(c, 12000, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrChildNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrChildForbidden):
		response.Forbidden(c, 12002, err.Error())
	default:
		response.InternalError(c)
	}
}
