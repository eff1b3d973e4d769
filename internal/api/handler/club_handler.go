package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/service"
	pkgerrors "club-bookings/backend/pkg/errors"
	"club-bookings/backend/pkg/response"
)

// ClubHandler 社团模块 HTTP 处理器
type ClubHandler struct {
	clubSvc service.ClubService
}

// NewClubHandler 创建 ClubHandler
func NewClubHandler(clubSvc service.ClubService) *ClubHandler {
	return &ClubHandler{clubSvc: clubSvc}
}

// List 社团列表（含剩余名额）
// GET /api/v1/clubs?q=&from=&include_past=&page=&page_size=
func (h *ClubHandler) List(c *gin.Context) {
	var query dto.ClubListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindFailed(c, err)
		return
	}

	clubs, total, err := h.clubSvc.List(c.Request.Context(), &query)
	if err != nil {
		h.handleClubError(c, err)
		return
	}
	response.OKPage(c, clubs, total, query.GetPage(), query.GetPageSize())
}

// ListMine 当前教师创建的社团
// GET /api/v1/clubs/mine
func (h *ClubHandler) ListMine(c *gin.Context) {
	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	clubs, err := h.clubSvc.ListMine(c.Request.Context(), teacherID)
	if err != nil {
		h.handleClubError(c, err)
		return
	}
	response.OK(c, clubs)
}

// Get 社团详情
// GET /api/v1/clubs/:id
func (h *ClubHandler) Get(c *gin.Context) {
	id, ok := pathID(c, 13001, service.ErrClubNotFound)
	if !ok {
		return
	}

	club, err := h.clubSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleClubError(c, err)
		return
	}
	response.OK(c, club)
}

// Create 创建社团
// POST /api/v1/clubs
func (h *ClubHandler) Create(c *gin.Context) {
	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	club, err := h.clubSvc.Create(c.Request.Context(), teacherID, &req)
	if err != nil {
		h.handleClubError(c, err)
		return
	}
	response.Created(c, club)
}

// Update 编辑社团（仅创建者，需回传 version）
// PUT /api/v1/clubs/:id
func (h *ClubHandler) Update(c *gin.Context) {
	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, 13001, service.ErrClubNotFound)
	if !ok {
		return
	}

	var req dto.ClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	club, err := h.clubSvc.Update(c.Request.Context(), teacherID, id, &req)
	if err != nil {
		h.handleClubError(c, err)
		return
	}
	response.OK(c, club)
}

// Delete 删除社团（报名记录级联删除）
// DELETE /api/v1/clubs/:id
func (h *ClubHandler) Delete(c *gin.Context) {
	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, 13001, service.ErrClubNotFound)
	if !ok {
		return
	}

	if err := h.clubSvc.Delete(c.Request.Context(), teacherID, id); err != nil {
		h.handleClubError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *ClubHandler) handleClubError(c *gin.Context, err error) {
	if writeValidation(c, 13000, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrClubNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrClubForbidden):
		response.Forbidden(c, 13002, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13003, err.Error())
	default:
		response.InternalError(c)
	}
}
