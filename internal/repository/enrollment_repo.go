package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"club-bookings/backend/internal/model"
)

// EnrollmentFilter 报名列表筛选条件
type EnrollmentFilter struct {
	ParentID string // 非空时只查该家长名下儿童的报名
	ChildID  string
	ClubID   string
	Status   string // 空表示不限
}

// EnrollmentRepository 报名数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	GetByID(ctx context.Context, id string) (*model.Enrollment, error)
	GetByChildAndClub(ctx context.Context, childID, clubID string) (*model.Enrollment, error)
	// ListActiveByChild 儿童的全部 active 报名，预加载社团排期
	ListActiveByChild(ctx context.Context, childID string) ([]model.Enrollment, error)
	CountActiveByClub(ctx context.Context, clubID string) (int64, error)
	List(ctx context.Context, filter EnrollmentFilter) ([]model.Enrollment, error)
	// Reactivate 已取消的报名重新生效（复用同一行）
	Reactivate(ctx context.Context, id string, at time.Time) error
	Cancel(ctx context.Context, id string, at time.Time) error
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Child").
		Preload("Club").
		Where("enrollment_id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) GetByChildAndClub(ctx context.Context, childID, clubID string) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.WithContext(ctx).
		Where("child_id = ? AND club_id = ?", childID, clubID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) ListActiveByChild(ctx context.Context, childID string) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Club").
		Where("child_id = ? AND status = ?", childID, model.EnrollmentStatusActive).
		Order("enrolled_at ASC").
		Find(&list).Error
	return list, err
}

func (r *enrollmentRepo) CountActiveByClub(ctx context.Context, clubID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("club_id = ? AND status = ?", clubID, model.EnrollmentStatusActive).
		Count(&count).Error
	return count, err
}

func (r *enrollmentRepo) List(ctx context.Context, filter EnrollmentFilter) ([]model.Enrollment, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Joins("JOIN children ON children.child_id = enrollments.child_id").
		Preload("Child").
		Preload("Club")

	if filter.ParentID != "" {
		db = db.Where("children.parent_id = ?", filter.ParentID)
	}
	if filter.ChildID != "" {
		db = db.Where("enrollments.child_id = ?", filter.ChildID)
	}
	if filter.ClubID != "" {
		db = db.Where("enrollments.club_id = ?", filter.ClubID)
	}
	if filter.Status != "" {
		db = db.Where("enrollments.status = ?", filter.Status)
	}

	var list []model.Enrollment
	err := db.
		Order("children.surname ASC, children.first_name ASC, enrollments.enrolled_at ASC").
		Find(&list).Error
	return list, err
}

func (r *enrollmentRepo) Reactivate(ctx context.Context, id string, at time.Time) error {
	return r.setStatus(ctx, id, map[string]interface{}{
		"status":       model.EnrollmentStatusActive,
		"enrolled_at":  at,
		"cancelled_at": nil,
	})
}

func (r *enrollmentRepo) Cancel(ctx context.Context, id string, at time.Time) error {
	return r.setStatus(ctx, id, map[string]interface{}{
		"status":       model.EnrollmentStatusCancelled,
		"cancelled_at": at,
	})
}

func (r *enrollmentRepo) setStatus(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
