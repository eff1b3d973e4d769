package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-bookings/backend/config"
	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/model"
	"club-bookings/backend/internal/repository"
	"club-bookings/backend/internal/rules"
)

var (
	ErrChildNotFound  = errors.New("child not found")
	ErrChildForbidden = errors.New("you can only manage your own children")
)

// ChildService 儿童业务接口（仅家长可用）
type ChildService interface {
	List(ctx context.Context, parentID string) ([]dto.ChildResponse, error)
	Get(ctx context.Context, parentID, childID string) (*dto.ChildResponse, error)
	Create(ctx context.Context, parentID string, req *dto.ChildRequest) (*dto.ChildResponse, error)
	Update(ctx context.Context, parentID, childID string, req *dto.ChildRequest) (*dto.ChildResponse, error)
	// Delete 删除儿童，其报名记录级联删除
	Delete(ctx context.Context, parentID, childID string) error
}

type childService struct {
	repo    *repository.Repository
	feature config.FeatureConfig
	clock   Clock
	logger  *zap.Logger
}

// NewChildService 创建 ChildService 实例
func NewChildService(repo *repository.Repository, feature config.FeatureConfig, clock Clock, logger *zap.Logger) ChildService {
	return &childService{
		repo:    repo,
		feature: feature,
		clock:   clock,
		logger:  logger,
	}
}

func (s *childService) List(ctx context.Context, parentID string) ([]dto.ChildResponse, error) {
	children, err := s.repo.Child.ListByParent(ctx, parentID)
	if err != nil {
		s.logger.Error("查询儿童列表失败", zap.Error(err))
		return nil, err
	}
	today := s.clock.Today()
	out := make([]dto.ChildResponse, 0, len(children))
	for i := range children {
		out = append(out, toChildResponse(&children[i], today))
	}
	return out, nil
}

func (s *childService) Get(ctx context.Context, parentID, childID string) (*dto.ChildResponse, error) {
	child, err := s.owned(ctx, parentID, childID)
	if err != nil {
		return nil, err
	}
	resp := toChildResponse(child, s.clock.Today())
	return &resp, nil
}

func (s *childService) Create(ctx context.Context, parentID string, req *dto.ChildRequest) (*dto.ChildResponse, error) {
	child := &model.Child{ParentID: parentID}
	if err := s.validate(ctx, parentID, "", req); err != nil {
		return nil, err
	}
	applyChildRequest(child, req)

	if err := s.repo.Child.Create(ctx, child); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, childAlreadyKnown()
		}
		s.logger.Error("创建儿童失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("登记儿童", zap.String("child_id", child.ChildID), zap.String("parent_id", parentID))
	resp := toChildResponse(child, s.clock.Today())
	return &resp, nil
}

func (s *childService) Update(ctx context.Context, parentID, childID string, req *dto.ChildRequest) (*dto.ChildResponse, error) {
	child, err := s.owned(ctx, parentID, childID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, parentID, child.ChildID, req); err != nil {
		return nil, err
	}
	applyChildRequest(child, req)

	if err := s.repo.Child.Update(ctx, child); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, childAlreadyKnown()
		}
		s.logger.Error("更新儿童失败", zap.Error(err))
		return nil, err
	}

	resp := toChildResponse(child, s.clock.Today())
	return &resp, nil
}

func (s *childService) Delete(ctx context.Context, parentID, childID string) error {
	if _, err := s.owned(ctx, parentID, childID); err != nil {
		return err
	}
	if err := s.repo.Child.Delete(ctx, childID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChildNotFound
		}
		s.logger.Error("删除儿童失败", zap.Error(err))
		return err
	}
	s.logger.Info("删除儿童", zap.String("child_id", childID), zap.String("parent_id", parentID))
	return nil
}

// ── 内部方法 ──

// owned 查询儿童并校验归属
func (s *childService) owned(ctx context.Context, parentID, childID string) (*model.Child, error) {
	child, err := s.repo.Child.GetByID(ctx, childID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChildNotFound
		}
		s.logger.Error("查询儿童失败", zap.Error(err))
		return nil, err
	}
	if child.ParentID != parentID {
		return nil, ErrChildForbidden
	}
	return child, nil
}

// validate 表单批量校验；返回 rules.FieldErrors 或基础设施错误
func (s *childService) validate(ctx context.Context, parentID, editingID string, req *dto.ChildRequest) error {
	dob, dobOK := dto.ParseDate(req.DateOfBirth)
	fields := rules.ChildFields{
		FirstName:             strings.TrimSpace(req.FirstName),
		Surname:               strings.TrimSpace(req.Surname),
		DateOfBirth:           dob,
		EmergencyContactName:  strings.TrimSpace(req.EmergencyContactName),
		EmergencyContactPhone: strings.TrimSpace(req.EmergencyContactPhone),
	}

	var existing []rules.ChildRef
	if dob != nil && fields.FirstName != "" && fields.Surname != "" {
		scopeParent := parentID
		if s.feature.ChildUniquenessScope == rules.ScopeGlobal {
			scopeParent = ""
		}
		matches, err := s.repo.Child.FindIdentityMatches(ctx, scopeParent, fields.FirstName, fields.Surname, *dob)
		if err != nil {
			s.logger.Error("儿童查重失败", zap.Error(err))
			return err
		}
		for _, m := range matches {
			existing = append(existing, rules.ChildRef{
				ID:          m.ChildID,
				ParentID:    m.ParentID,
				FirstName:   m.FirstName,
				Surname:     m.Surname,
				DateOfBirth: m.DateOfBirth,
			})
		}
	}

	errs := rules.ValidateChild(fields, existing, editingID, rules.ChildOptions{
		Today:    s.clock.Today(),
		ParentID: parentID,
		Scope:    s.feature.ChildUniquenessScope,
	})
	if !dobOK {
		// 格式错误时 ValidateChild 只看到 nil，改报格式错误
		errs["date_of_birth"] = []string{rules.MsgInvalidDate}
	}
	if !errs.Empty() {
		return errs
	}
	return nil
}

func applyChildRequest(child *model.Child, req *dto.ChildRequest) {
	// 调用前已通过校验，生日必然有效
	dob, _ := dto.ParseDate(req.DateOfBirth)
	child.FirstName = strings.TrimSpace(req.FirstName)
	child.Surname = strings.TrimSpace(req.Surname)
	child.DateOfBirth = *dob
	child.AllergyInfo = strings.TrimSpace(req.AllergyInfo)
	child.EmergencyContactName = strings.TrimSpace(req.EmergencyContactName)
	child.EmergencyContactPhone = strings.TrimSpace(req.EmergencyContactPhone)
	child.SpecialNeeds = strings.TrimSpace(req.SpecialNeeds)
}

func childAlreadyKnown() rules.FieldErrors {
	errs := rules.FieldErrors{}
	errs.Add(rules.NonFieldKey, rules.MsgChildAlreadyKnown)
	return errs
}
