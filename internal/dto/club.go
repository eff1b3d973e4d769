package dto

// ── 社团模块 DTO ──

// ClubRequest 创建/编辑社团请求
// 数值字段用指针区分"未填写"与 0；业务规则由 rules.ValidateClub 批量校验
type ClubRequest struct {
	Name        string `json:"name"        binding:"max=200"`
	Description string `json:"description" binding:"max=2000"`
	MinAge      *int   `json:"min_age"`
	MaxAge      *int   `json:"max_age"`
	Capacity    *int   `json:"capacity"`
	StartTime   string `json:"start_time"` // HH:MM
	EndTime     string `json:"end_time"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD
	EndDate     string `json:"end_date"`
	Frequency   string `json:"frequency"`
	Version     int    `json:"version"` // 编辑时必须回传，用于乐观锁
}

// ClubListQuery 社团列表查询参数
type ClubListQuery struct {
	PaginationRequest
	Search      string `form:"q"            binding:"omitempty,max=100"`
	From        string `form:"from"         binding:"omitempty,isodate"` // 只看该日期仍在进行的社团
	IncludePast bool   `form:"include_past"`
}

// EligibilityQuery 报名资格预检参数
type EligibilityQuery struct {
	ChildID string `form:"child_id" binding:"required,uuid"`
}

// ClubResponse 社团信息响应
type ClubResponse struct {
	ID          string `json:"id"`
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinAge      int    `json:"min_age"`
	MaxAge      int    `json:"max_age"`
	Capacity    int    `json:"capacity"`
	ActiveCount int    `json:"active_count"`
	Remaining   int    `json:"remaining"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Frequency   string `json:"frequency"`
	Version     int    `json:"version"`
	CreatedAt   string `json:"created_at"`
}

// ClubBrief 社团简要信息（报名列表、家长面板）
type ClubBrief struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Frequency    string `json:"frequency"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
}

// EligibilityResponse 报名资格预检结果
type EligibilityResponse struct {
	Eligible       bool   `json:"eligible"`
	Reason         string `json:"reason,omitempty"`
	Message        string `json:"message,omitempty"`
	ConflictClubID string `json:"conflict_club_id,omitempty"`
}
