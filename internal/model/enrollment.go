package model

import (
	"time"

	"gorm.io/gorm"
)

// 报名状态
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCancelled = "cancelled"
)

// Enrollment 报名表 — 对应 enrollments
// (child_id, club_id) 唯一；取消只改状态，再次报名复用同一行
type Enrollment struct {
	EnrollmentID string     `gorm:"type:uuid;primaryKey"                              json:"enrollment_id"`
	ChildID      string     `gorm:"type:uuid;not null;uniqueIndex:uk_enrollment_pair" json:"child_id"`
	ClubID       string     `gorm:"type:uuid;not null;uniqueIndex:uk_enrollment_pair" json:"club_id"`
	Status       string     `gorm:"type:varchar(20);not null;default:'active'"        json:"status"` // active | cancelled
	EnrolledAt   time.Time  `gorm:"not null"                                          json:"enrolled_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	BaseModel

	// 关联：belongs-to，外键按 ChildID / ClubID 约定推导。
	// 不写 foreignKey 标签：Child / Club 自身也有同名主键字段，显式标签会被解析成反向的 has-one
	Child *Child `gorm:"constraint:OnDelete:CASCADE" json:"child,omitempty"`
	Club  *Club  `gorm:"constraint:OnDelete:CASCADE" json:"club,omitempty"`
}

func (Enrollment) TableName() string { return "enrollments" }

// BeforeCreate 生成主键
func (e *Enrollment) BeforeCreate(*gorm.DB) error {
	ensureID(&e.EnrollmentID)
	return nil
}

// IsActive 是否为有效报名
func (e *Enrollment) IsActive() bool { return e.Status == EnrollmentStatusActive }
