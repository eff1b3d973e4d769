package dto

// ── 报名模块 DTO ──

// CreateEnrollmentRequest 报名请求
type CreateEnrollmentRequest struct {
	ChildID string `json:"child_id" binding:"required,uuid"`
	ClubID  string `json:"club_id"  binding:"required,uuid"`
}

// EnrollmentListQuery 报名列表查询参数
type EnrollmentListQuery struct {
	Status  string `form:"status"   binding:"omitempty,oneof=active cancelled all"` // 默认 active
	ChildID string `form:"child_id" binding:"omitempty,uuid"`
}

// EnrollmentResponse 报名信息响应
type EnrollmentResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	EnrolledAt  string     `json:"enrolled_at"`
	CancelledAt *string    `json:"cancelled_at,omitempty"`
	Child       ChildBrief `json:"child"`
	Club        ClubBrief  `json:"club"`
}
