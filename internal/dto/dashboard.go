package dto

// ParentDashboardResponse 家长面板：名下儿童及其 active 报名
type ParentDashboardResponse struct {
	User     UserResponse    `json:"user"`
	Children []ChildResponse `json:"children"`
}

// TeacherDashboardResponse 教师面板：自己创建的社团及报名人数
type TeacherDashboardResponse struct {
	User             UserResponse   `json:"user"`
	Clubs            []ClubResponse `json:"clubs"`
	TotalActiveCount int            `json:"total_active_count"`
}
