package dto

// ── 儿童模块 DTO ──

// ChildRequest 创建/编辑儿童请求
// 必填、年龄、电话格式、查重由 rules.ValidateChild 批量校验
type ChildRequest struct {
	FirstName             string `json:"first_name"              binding:"max=100"`
	Surname               string `json:"surname"                 binding:"max=100"`
	DateOfBirth           string `json:"date_of_birth"` // YYYY-MM-DD
	AllergyInfo           string `json:"allergy_info"            binding:"max=2000"`
	EmergencyContactName  string `json:"emergency_contact_name"  binding:"max=100"`
	EmergencyContactPhone string `json:"emergency_contact_phone" binding:"max=20"`
	SpecialNeeds          string `json:"special_needs"           binding:"max=2000"`
}

// ChildResponse 儿童信息响应
type ChildResponse struct {
	ID                    string      `json:"id"`
	FirstName             string      `json:"first_name"`
	Surname               string      `json:"surname"`
	FullName              string      `json:"full_name"`
	DateOfBirth           string      `json:"date_of_birth"`
	Age                   int         `json:"age"`
	AllergyInfo           string      `json:"allergy_info"`
	EmergencyContactName  string      `json:"emergency_contact_name"`
	EmergencyContactPhone string      `json:"emergency_contact_phone"`
	SpecialNeeds          string      `json:"special_needs"`
	CreatedAt             string      `json:"created_at"`
	Enrollments           []ClubBrief `json:"enrollments,omitempty"` // 仅家长面板返回
}

// ChildBrief 儿童简要信息
type ChildBrief struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}
