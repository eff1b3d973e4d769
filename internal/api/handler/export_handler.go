package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"club-bookings/backend/internal/service"
	"club-bookings/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ClubRoster 导出社团报名名单
// GET /api/v1/clubs/:id/roster.xlsx
func (h *ExportHandler) ClubRoster(c *gin.Context) {
	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, 13001, service.ErrClubNotFound)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ClubRoster(c.Request.Context(), teacherID, id)
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	download(c, buf, filename, contentTypeXLSX)
}

// ChildCalendar 导出儿童日程
// GET /api/v1/children/:id/calendar.ics
func (h *ExportHandler) ChildCalendar(c *gin.Context) {
	parentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, 12001, service.ErrChildNotFound)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ChildCalendar(c.Request.Context(), parentID, id)
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	download(c, buf, filename, contentTypeICS)
}

// download 设置下载响应头并写出文件
func download(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClubNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrClubForbidden):
		response.Forbidden(c, 13002, err.Error())
	case errors.Is(err, service.ErrChildNotFound):
		response.NotFound(c, 12001, err.Error())
	case errors.Is(err, service.ErrChildForbidden):
		response.Forbidden(c, 12002, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 16001, err.Error())
	default:
		response.InternalError(c)
	}
}
