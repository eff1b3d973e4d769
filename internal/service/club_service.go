package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-bookings/backend/config"
	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/model"
	"club-bookings/backend/internal/repository"
	"club-bookings/backend/internal/rules"
	pkgerrors "club-bookings/backend/pkg/errors"
)

var (
	ErrClubNotFound  = errors.New("club not found")
	ErrClubForbidden = errors.New("you can only manage clubs you created")
)

// msgCapacityBelowActive 编辑时名额不能低于当前 active 报名数
const msgCapacityBelowActive = "Capacity cannot be lower than the %d children already enrolled."

// ClubService 社团业务接口
type ClubService interface {
	// List 全部社团（含剩余名额），默认只返回尚未结束的社团
	List(ctx context.Context, query *dto.ClubListQuery) ([]dto.ClubResponse, int64, error)
	ListMine(ctx context.Context, teacherID string) ([]dto.ClubResponse, error)
	Get(ctx context.Context, clubID string) (*dto.ClubResponse, error)
	Create(ctx context.Context, teacherID string, req *dto.ClubRequest) (*dto.ClubResponse, error)
	Update(ctx context.Context, teacherID, clubID string, req *dto.ClubRequest) (*dto.ClubResponse, error)
	Delete(ctx context.Context, teacherID, clubID string) error
}

type clubService struct {
	repo    *repository.Repository
	feature config.FeatureConfig
	clock   Clock
	logger  *zap.Logger
}

// NewClubService 创建 ClubService 实例
func NewClubService(repo *repository.Repository, feature config.FeatureConfig, clock Clock, logger *zap.Logger) ClubService {
	return &clubService{
		repo:    repo,
		feature: feature,
		clock:   clock,
		logger:  logger,
	}
}

func (s *clubService) List(ctx context.Context, query *dto.ClubListQuery) ([]dto.ClubResponse, int64, error) {
	filter := repository.ClubFilter{
		Search: query.Search,
		Offset: query.GetOffset(),
		Limit:  query.GetPageSize(),
	}
	if from, ok := dto.ParseDate(query.From); ok && from != nil {
		filter.ActiveOn = from
	} else if !query.IncludePast {
		today := utcDate(s.clock.Today())
		filter.ActiveOn = &today
	}

	rows, total, err := s.repo.Club.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询社团列表失败", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.ClubResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toClubWithCountResponse(&rows[i]))
	}
	return out, total, nil
}

func (s *clubService) ListMine(ctx context.Context, teacherID string) ([]dto.ClubResponse, error) {
	rows, _, err := s.repo.Club.List(ctx, repository.ClubFilter{TeacherID: teacherID})
	if err != nil {
		s.logger.Error("查询教师社团失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.ClubResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toClubWithCountResponse(&rows[i]))
	}
	return out, nil
}

func (s *clubService) Get(ctx context.Context, clubID string) (*dto.ClubResponse, error) {
	row, err := s.repo.Club.GetWithCount(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClubNotFound
		}
		s.logger.Error("查询社团失败", zap.Error(err))
		return nil, err
	}
	resp := toClubWithCountResponse(row)
	return &resp, nil
}

func (s *clubService) Create(ctx context.Context, teacherID string, req *dto.ClubRequest) (*dto.ClubResponse, error) {
	fields, errs := clubFields(req)
	existing, err := s.sameName(ctx, s.repo, fields.Name)
	if err != nil {
		return nil, err
	}
	for field, msgs := range rules.ValidateClub(fields, existing, "", rules.ClubOptions{Today: s.clock.Today()}) {
		if !errs.Has(field) {
			errs[field] = msgs
		}
	}
	if !errs.Empty() {
		return nil, errs
	}

	club := &model.Club{TeacherID: teacherID}
	applyClubFields(club, fields, req.Description)
	if err := s.repo.Club.Create(ctx, club); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, clubNameTaken()
		}
		s.logger.Error("创建社团失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建社团", zap.String("club_id", club.ClubID), zap.String("teacher_id", teacherID))
	resp := toClubResponse(club, 0, "")
	return &resp, nil
}

func (s *clubService) Update(ctx context.Context, teacherID, clubID string, req *dto.ClubRequest) (*dto.ClubResponse, error) {
	fields, errs := clubFields(req)
	opts := rules.ClubOptions{
		Today:                  s.clock.Today(),
		EnforceStartDateOnEdit: s.feature.EnforceStartDateOnEdit,
	}

	var (
		club   *model.Club
		active int64
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		// 锁定社团行，与报名事务串行，名额与 active 人数的比较在锁内进行
		club, err = s.ownedForUpdate(ctx, tx, teacherID, clubID)
		if err != nil {
			return err
		}
		if req.Version != club.Version {
			return pkgerrors.ErrOptimisticLock
		}

		existing, err := s.sameName(ctx, tx, fields.Name)
		if err != nil {
			return err
		}
		for field, msgs := range rules.ValidateClub(fields, existing, club.ClubID, opts) {
			if !errs.Has(field) {
				errs[field] = msgs
			}
		}

		active, err = tx.Enrollment.CountActiveByClub(ctx, club.ClubID)
		if err != nil {
			s.logger.Error("统计社团报名人数失败", zap.Error(err))
			return err
		}
		if fields.Capacity != nil && *fields.Capacity > 0 && int64(*fields.Capacity) < active {
			errs.Add("capacity", fmt.Sprintf(msgCapacityBelowActive, active))
		}
		if !errs.Empty() {
			return errs
		}

		applyClubFields(club, fields, req.Description)
		if err := tx.Club.Update(ctx, club); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return clubNameTaken()
			}
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("更新社团失败", zap.Error(err))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := toClubResponse(club, int(active), "")
	return &resp, nil
}

func (s *clubService) Delete(ctx context.Context, teacherID, clubID string) error {
	if _, err := s.owned(ctx, teacherID, clubID); err != nil {
		return err
	}
	if err := s.repo.Club.Delete(ctx, clubID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClubNotFound
		}
		s.logger.Error("删除社团失败", zap.Error(err))
		return err
	}
	s.logger.Info("删除社团", zap.String("club_id", clubID), zap.String("teacher_id", teacherID))
	return nil
}

// ── 内部方法 ──

func (s *clubService) owned(ctx context.Context, teacherID, clubID string) (*model.Club, error) {
	club, err := s.repo.Club.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClubNotFound
		}
		s.logger.Error("查询社团失败", zap.Error(err))
		return nil, err
	}
	if club.TeacherID != teacherID {
		return nil, ErrClubForbidden
	}
	return club, nil
}

// ownedForUpdate 在事务内加行锁读取社团并校验创建者
func (s *clubService) ownedForUpdate(ctx context.Context, tx *repository.Repository, teacherID, clubID string) (*model.Club, error) {
	club, err := tx.Club.GetByIDForUpdate(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClubNotFound
		}
		s.logger.Error("查询社团失败", zap.Error(err))
		return nil, err
	}
	if club.TeacherID != teacherID {
		return nil, ErrClubForbidden
	}
	return club, nil
}

func (s *clubService) sameName(ctx context.Context, repo *repository.Repository, name string) ([]rules.ClubRef, error) {
	if name == "" {
		return nil, nil
	}
	clubs, err := repo.Club.FindByNameFold(ctx, name)
	if err != nil {
		s.logger.Error("社团查重失败", zap.Error(err))
		return nil, err
	}
	refs := make([]rules.ClubRef, 0, len(clubs))
	for _, c := range clubs {
		refs = append(refs, rules.ClubRef{ID: c.ClubID, Name: c.Name})
	}
	return refs, nil
}

// clubFields 请求 → 校验字段；日期格式错误直接记入返回的错误表
func clubFields(req *dto.ClubRequest) (rules.ClubFields, rules.FieldErrors) {
	errs := rules.FieldErrors{}
	startDate, ok := dto.ParseDate(req.StartDate)
	if !ok {
		errs.Add("start_date", rules.MsgInvalidDate)
	}
	endDate, ok := dto.ParseDate(req.EndDate)
	if !ok {
		errs.Add("end_date", rules.MsgInvalidDate)
	}
	return rules.ClubFields{
		Name:      strings.TrimSpace(req.Name),
		MinAge:    req.MinAge,
		MaxAge:    req.MaxAge,
		Capacity:  req.Capacity,
		StartTime: strings.TrimSpace(req.StartTime),
		EndTime:   strings.TrimSpace(req.EndTime),
		StartDate: startDate,
		EndDate:   endDate,
		Frequency: strings.TrimSpace(req.Frequency),
	}, errs
}

// applyClubFields 已通过校验的字段写回模型
func applyClubFields(club *model.Club, f rules.ClubFields, description string) {
	club.Name = f.Name
	club.Description = strings.TrimSpace(description)
	club.MinAge = *f.MinAge
	club.MaxAge = *f.MaxAge
	club.Capacity = *f.Capacity
	club.StartTime = rules.MustClock(f.StartTime).HMS()
	club.EndTime = rules.MustClock(f.EndTime).HMS()
	club.StartDate = *f.StartDate
	club.EndDate = *f.EndDate
	club.Frequency = f.Frequency
}

func clubNameTaken() rules.FieldErrors {
	errs := rules.FieldErrors{}
	errs.Add("name", rules.MsgClubNameTaken)
	return errs
}
