package model

import (
	"time"

	"gorm.io/gorm"
)

// 社团频率
const (
	FrequencyOneOff = "one-off"
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Club 社团/活动表 — 对应 clubs
// LOWER(name) 全局唯一，见迁移脚本
type Club struct {
	ClubID      string    `gorm:"type:uuid;primaryKey"       json:"club_id"`
	TeacherID   string    `gorm:"type:uuid;not null;index"   json:"teacher_id"`
	Name        string    `gorm:"type:varchar(200);not null" json:"name"`
	Description string    `gorm:"type:text"                  json:"description"`
	MinAge      int       `gorm:"not null"                   json:"min_age"`
	MaxAge      int       `gorm:"not null"                   json:"max_age"`
	Capacity    int       `gorm:"not null"                   json:"capacity"`
	StartTime   string    `gorm:"type:time;not null"         json:"start_time"` // HH:MM:SS
	EndTime     string    `gorm:"type:time;not null"         json:"end_time"`
	StartDate   time.Time `gorm:"type:date;not null"         json:"start_date"`
	EndDate     time.Time `gorm:"type:date;not null"         json:"end_date"`
	Frequency   string    `gorm:"type:varchar(10);not null"  json:"frequency"` // one-off | daily | weekly
	VersionedModel

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:UserID;constraint:OnDelete:CASCADE" json:"teacher,omitempty"`
}

func (Club) TableName() string { return "clubs" }

// BeforeCreate 生成主键
func (c *Club) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ClubID)
	return nil
}

// ClubWithCount 社团 + 当前 active 报名数 + 教师姓名（列表查询聚合结果）
type ClubWithCount struct {
	Club
	ActiveCount int    `gorm:"column:active_count" json:"active_count"`
	TeacherName string `gorm:"column:teacher_name" json:"teacher_name"`
}

// Remaining 剩余名额
func (c *ClubWithCount) Remaining() int {
	if n := c.Capacity - c.ActiveCount; n > 0 {
		return n
	}
	return 0
}
