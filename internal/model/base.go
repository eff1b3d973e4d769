package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用时间戳字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// ensureID 主键为空时生成 UUID
// 主键由应用侧生成，不依赖数据库 gen_random_uuid()
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
