package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"club-bookings/backend/internal/model"
	pkgerrors "club-bookings/backend/pkg/errors"
)

// ClubFilter 社团列表筛选条件
type ClubFilter struct {
	TeacherID string     // 非空时只查该教师的社团
	Search    string     // 名称模糊匹配（大小写不敏感）
	ActiveOn  *time.Time // 非空时只查 end_date >= ActiveOn 的社团
	Offset    int
	Limit     int // <= 0 表示不分页
}

// ClubRepository 社团数据访问接口
type ClubRepository interface {
	Create(ctx context.Context, club *model.Club) error
	GetByID(ctx context.Context, id string) (*model.Club, error)
	// GetByIDForUpdate SELECT ... FOR UPDATE，必须在事务中调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Club, error)
	GetWithCount(ctx context.Context, id string) (*model.ClubWithCount, error)
	FindByNameFold(ctx context.Context, name string) ([]model.Club, error)
	List(ctx context.Context, filter ClubFilter) ([]model.ClubWithCount, int64, error)
	Update(ctx context.Context, club *model.Club) error
	Delete(ctx context.Context, id string) error
}

type clubRepo struct {
	db *gorm.DB
}

// NewClubRepo 创建 ClubRepository 实例
func NewClubRepo(db *gorm.DB) ClubRepository {
	return &clubRepo{db: db}
}

func (r *clubRepo) Create(ctx context.Context, club *model.Club) error {
	return r.db.WithContext(ctx).Create(club).Error
}

func (r *clubRepo) GetByID(ctx context.Context, id string) (*model.Club, error) {
	var club model.Club
	err := r.db.WithContext(ctx).
		Where("club_id = ?", id).
		First(&club).Error
	if err != nil {
		return nil, err
	}
	return &club, nil
}

func (r *clubRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Club, error) {
	var club model.Club
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("club_id = ?", id).
		First(&club).Error
	if err != nil {
		return nil, err
	}
	return &club, nil
}

func (r *clubRepo) GetWithCount(ctx context.Context, id string) (*model.ClubWithCount, error) {
	var rows []model.ClubWithCount
	err := r.withCounts(ctx).
		Where("clubs.club_id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *clubRepo) FindByNameFold(ctx context.Context, name string) ([]model.Club, error) {
	var clubs []model.Club
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).
		Find(&clubs).Error
	return clubs, err
}

func (r *clubRepo) List(ctx context.Context, filter ClubFilter) ([]model.ClubWithCount, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&model.Club{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db := r.applyFilter(r.withCounts(ctx), filter).
		Order("clubs.start_date ASC, clubs.start_time ASC, clubs.name ASC")
	if filter.Limit > 0 {
		db = db.Offset(filter.Offset).Limit(filter.Limit)
	}

	var rows []model.ClubWithCount
	if err := db.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
func (r *clubRepo) Update(ctx context.Context, club *model.Club) error {
	oldVersion := club.Version
	result := r.db.WithContext(ctx).
		Model(&model.Club{}).
		Where("club_id = ? AND version = ?", club.ClubID, oldVersion).
		Updates(map[string]interface{}{
			"name":        club.Name,
			"description": club.Description,
			"min_age":     club.MinAge,
			"max_age":     club.MaxAge,
			"capacity":    club.Capacity,
			"start_time":  club.StartTime,
			"end_time":    club.EndTime,
			"start_date":  club.StartDate,
			"end_date":    club.EndDate,
			"frequency":   club.Frequency,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	club.Version = oldVersion + 1
	return nil
}

// Delete 删除社团，报名记录由外键级联删除
func (r *clubRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("club_id = ?", id).
		Delete(&model.Club{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── 查询构建 ──

// withCounts clubs LEFT JOIN active 报名计数 + 教师姓名
func (r *clubRepo) withCounts(ctx context.Context) *gorm.DB {
	activeCounts := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Select("club_id, COUNT(*) AS active_count").
		Where("status = ?", model.EnrollmentStatusActive).
		Group("club_id")

	return r.db.WithContext(ctx).
		Table("clubs").
		Select("clubs.*, COALESCE(ec.active_count, 0) AS active_count, "+
			"users.first_name || ' ' || users.surname AS teacher_name").
		Joins("LEFT JOIN (?) AS ec ON ec.club_id = clubs.club_id", activeCounts).
		Joins("LEFT JOIN users ON users.user_id = clubs.teacher_id")
}

func (r *clubRepo) applyFilter(db *gorm.DB, filter ClubFilter) *gorm.DB {
	if filter.TeacherID != "" {
		db = db.Where("clubs.teacher_id = ?", filter.TeacherID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		db = db.Where("LOWER(clubs.name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if filter.ActiveOn != nil {
		db = db.Where("clubs.end_date >= ?", *filter.ActiveOn)
	}
	return db
}
