package model

import (
	"time"

	"gorm.io/gorm"
)

// Child 儿童表 — 对应 children
// (parent_id, LOWER(first_name), LOWER(surname), date_of_birth) 唯一，见迁移脚本
type Child struct {
	ChildID               string    `gorm:"type:uuid;primaryKey"        json:"child_id"`
	ParentID              string    `gorm:"type:uuid;not null;index"    json:"parent_id"`
	FirstName             string    `gorm:"type:varchar(100);not null"  json:"first_name"`
	Surname               string    `gorm:"type:varchar(100);not null"  json:"surname"`
	DateOfBirth           time.Time `gorm:"type:date;not null"          json:"date_of_birth"`
	AllergyInfo           string    `gorm:"type:text"                   json:"allergy_info"`
	EmergencyContactName  string    `gorm:"type:varchar(100);not null"  json:"emergency_contact_name"`
	EmergencyContactPhone string    `gorm:"type:varchar(20);not null"   json:"emergency_contact_phone"`
	SpecialNeeds          string    `gorm:"type:text"                   json:"special_needs"`
	BaseModel

	// 关联
	Parent      *User        `gorm:"foreignKey:ParentID;references:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Enrollments []Enrollment `gorm:"foreignKey:ChildID"                                                 json:"enrollments,omitempty"`
}

func (Child) TableName() string { return "children" }

// BeforeCreate 生成主键
func (c *Child) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ChildID)
	return nil
}

// FullName "名 姓"
func (c *Child) FullName() string { return c.FirstName + " " + c.Surname }
