package dto

// 日期与时刻的序列化格式
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05Z07:00"
)

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── 校验失败响应 ──

// ValidationErrorData 422 响应体中的 data：字段错误
type ValidationErrorData struct {
	Errors map[string][]string `json:"errors"`
}

// RejectionData 422 响应体中的 data：报名被拒原因
type RejectionData struct {
	Reason         string `json:"reason"`
	ConflictClubID string `json:"conflict_club_id,omitempty"`
}
