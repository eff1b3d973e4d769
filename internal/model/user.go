package model

import "gorm.io/gorm"

// 用户角色
const (
	RoleTeacher = "teacher"
	RoleParent  = "parent"
)

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey"               json:"user_id"`
	Email        string `gorm:"type:varchar(255);not null;unique"  json:"email"` // 存储前统一小写
	PasswordHash string `gorm:"type:varchar(255);not null"         json:"-"`
	FirstName    string `gorm:"type:varchar(100);not null"         json:"first_name"`
	Surname      string `gorm:"type:varchar(100);not null"         json:"surname"`
	Role         string `gorm:"type:varchar(20);not null"          json:"role"` // teacher | parent
	IsActive     bool   `gorm:"not null;default:true"              json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 生成主键
func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.UserID)
	return nil
}

// FullName "名 姓"
func (u *User) FullName() string { return u.FirstName + " " + u.Surname }
