package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"club-bookings/backend/internal/model"
)

// ChildRepository 儿童数据访问接口
type ChildRepository interface {
	Create(ctx context.Context, child *model.Child) error
	GetByID(ctx context.Context, id string) (*model.Child, error)
	Update(ctx context.Context, child *model.Child) error
	Delete(ctx context.Context, id string) error
	ListByParent(ctx context.Context, parentID string) ([]model.Child, error)
	// ListByParentWithActiveEnrollments 家长面板：儿童 + active 报名（含社团）
	ListByParentWithActiveEnrollments(ctx context.Context, parentID string) ([]model.Child, error)
	// FindIdentityMatches 按 (名, 姓, 生日) 大小写不敏感查找；parentID 为空时全局查找
	FindIdentityMatches(ctx context.Context, parentID, firstName, surname string, dob time.Time) ([]model.Child, error)
}

type childRepo struct {
	db *gorm.DB
}

// NewChildRepo 创建 ChildRepository 实例
func NewChildRepo(db *gorm.DB) ChildRepository {
	return &childRepo{db: db}
}

func (r *childRepo) Create(ctx context.Context, child *model.Child) error {
	return r.db.WithContext(ctx).Create(child).Error
}

func (r *childRepo) GetByID(ctx context.Context, id string) (*model.Child, error) {
	var child model.Child
	err := r.db.WithContext(ctx).
		Where("child_id = ?", id).
		First(&child).Error
	if err != nil {
		return nil, err
	}
	return &child, nil
}

func (r *childRepo) Update(ctx context.Context, child *model.Child) error {
	return r.db.WithContext(ctx).
		Model(child).
		Where("child_id = ?", child.ChildID).
		Updates(map[string]interface{}{
			"first_name":              child.FirstName,
			"surname":                 child.Surname,
			"date_of_birth":           child.DateOfBirth,
			"allergy_info":            child.AllergyInfo,
			"emergency_contact_name":  child.EmergencyContactName,
			"emergency_contact_phone": child.EmergencyContactPhone,
			"special_needs":           child.SpecialNeeds,
		}).Error
}

// Delete 删除儿童，报名记录由外键级联删除
func (r *childRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("child_id = ?", id).
		Delete(&model.Child{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *childRepo) ListByParent(ctx context.Context, parentID string) ([]model.Child, error) {
	var children []model.Child
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("first_name ASC, surname ASC").
		Find(&children).Error
	return children, err
}

func (r *childRepo) ListByParentWithActiveEnrollments(ctx context.Context, parentID string) ([]model.Child, error) {
	var children []model.Child
	err := r.db.WithContext(ctx).
		Preload("Enrollments", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", model.EnrollmentStatusActive).Order("enrolled_at ASC")
		}).
		Preload("Enrollments.Club").
		Where("parent_id = ?", parentID).
		Order("first_name ASC, surname ASC").
		Find(&children).Error
	return children, err
}

func (r *childRepo) FindIdentityMatches(ctx context.Context, parentID, firstName, surname string, dob time.Time) ([]model.Child, error) {
	var children []model.Child
	db := r.db.WithContext(ctx).
		Where("LOWER(first_name) = LOWER(?) AND LOWER(surname) = LOWER(?) AND date_of_birth = ?",
			firstName, surname, dob)
	if parentID != "" {
		db = db.Where("parent_id = ?", parentID)
	}
	err := db.Find(&children).Error
	return children, err
}
