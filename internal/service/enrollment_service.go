package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/model"
	"club-bookings/backend/internal/repository"
	"club-bookings/backend/internal/rules"
	"club-bookings/backend/pkg/mailer"
)

var (
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrEnrollmentForbidden = errors.New("you can only manage your own children's enrollments")
	ErrEnrollmentNotActive = errors.New("this enrollment has already been cancelled")
)

// EnrollmentService 报名业务接口（仅家长可用）
type EnrollmentService interface {
	// Check 报名资格预检，不落库
	Check(ctx context.Context, parentID, clubID, childID string) (*dto.EligibilityResponse, error)
	// Enroll 报名；不满足资格时返回 *rules.Rejection
	Enroll(ctx context.Context, parentID string, req *dto.CreateEnrollmentRequest) (*dto.EnrollmentResponse, error)
	List(ctx context.Context, parentID string, query *dto.EnrollmentListQuery) ([]dto.EnrollmentResponse, error)
	Cancel(ctx context.Context, parentID, enrollmentID string) (*dto.EnrollmentResponse, error)
}

type enrollmentService struct {
	repo     *repository.Repository
	notifier Notifier
	clock    Clock
	logger   *zap.Logger
}

// NewEnrollmentService 创建 EnrollmentService 实例；notifier 为 nil 时不发通知
func NewEnrollmentService(repo *repository.Repository, notifier Notifier, clock Clock, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{
		repo:     repo,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

func (s *enrollmentService) Check(ctx context.Context, parentID, clubID, childID string) (*dto.EligibilityResponse, error) {
	child, err := s.ownedChild(ctx, s.repo, parentID, childID)
	if err != nil {
		return nil, err
	}
	club, err := s.repo.Club.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClubNotFound
		}
		s.logger.Error("查询社团失败", zap.Error(err))
		return nil, err
	}

	rej, err := s.evaluate(ctx, s.repo, child, club)
	if err != nil {
		return nil, err
	}
	if rej != nil {
		return &dto.EligibilityResponse{
			Eligible:       false,
			Reason:         string(rej.Reason),
			Message:        rej.Message,
			ConflictClubID: rej.ConflictClubID,
		}, nil
	}
	return &dto.EligibilityResponse{Eligible: true}, nil
}

func (s *enrollmentService) Enroll(ctx context.Context, parentID string, req *dto.CreateEnrollmentRequest) (*dto.EnrollmentResponse, error) {
	var (
		enrollment *model.Enrollment
		child      *model.Child
		club       *model.Club
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		child, err = s.ownedChild(ctx, tx, parentID, req.ChildID)
		if err != nil {
			return err
		}

		// 1. 锁定社团行，同一社团的并发报名在此串行
		club, err = tx.Club.GetByIDForUpdate(ctx, req.ClubID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClubNotFound
			}
			return err
		}

		// 2. 在锁内取最新数据判定资格
		rej, err := s.evaluate(ctx, tx, child, club)
		if err != nil {
			return err
		}
		if rej != nil {
			return rej
		}

		// 3. 新建或恢复已取消的报名
		now := s.clock.Now()
		existing, err := tx.Enrollment.GetByChildAndClub(ctx, child.ChildID, club.ClubID)
		switch {
		case err == nil:
			if err := tx.Enrollment.Reactivate(ctx, existing.EnrollmentID, now); err != nil {
				return err
			}
			existing.Status = model.EnrollmentStatusActive
			existing.EnrolledAt = now
			existing.CancelledAt = nil
			enrollment = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			enrollment = &model.Enrollment{
				ChildID:    child.ChildID,
				ClubID:     club.ClubID,
				Status:     model.EnrollmentStatusActive,
				EnrolledAt: now,
			}
			if err := tx.Enrollment.Create(ctx, enrollment); err != nil {
				return err
			}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && child != nil && club != nil {
			return nil, rules.AlreadyEnrolled(ruleChild(child), club.Name)
		}
		if isEnrollmentBusinessError(err) {
			return nil, err
		}
		s.logger.Error("报名失败", zap.Error(err), zap.String("club_id", req.ClubID))
		return nil, err
	}

	s.logger.Info("报名成功",
		zap.String("enrollment_id", enrollment.EnrollmentID),
		zap.String("child_id", child.ChildID),
		zap.String("club_id", club.ClubID),
	)

	enrollment.Child = child
	enrollment.Club = club
	s.notify(ctx, enrollment, true)

	resp := toEnrollmentResponse(enrollment)
	return &resp, nil
}

func (s *enrollmentService) List(ctx context.Context, parentID string, query *dto.EnrollmentListQuery) ([]dto.EnrollmentResponse, error) {
	filter := repository.EnrollmentFilter{
		ParentID: parentID,
		ChildID:  query.ChildID,
	}
	switch query.Status {
	case "":
		filter.Status = model.EnrollmentStatusActive
	case "all":
	default:
		filter.Status = query.Status
	}
	if query.ChildID != "" {
		if _, err := s.ownedChild(ctx, s.repo, parentID, query.ChildID); err != nil {
			return nil, err
		}
	}

	list, err := s.repo.Enrollment.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询报名列表失败", zap.Error(err))
		return nil, err
	}
	out := make([]dto.EnrollmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toEnrollmentResponse(&list[i]))
	}
	return out, nil
}

func (s *enrollmentService) Cancel(ctx context.Context, parentID, enrollmentID string) (*dto.EnrollmentResponse, error) {
	enrollment, err := s.repo.Enrollment.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		s.logger.Error("查询报名失败", zap.Error(err))
		return nil, err
	}
	if enrollment.Child == nil || enrollment.Child.ParentID != parentID {
		return nil, ErrEnrollmentForbidden
	}
	if !enrollment.IsActive() {
		return nil, ErrEnrollmentNotActive
	}

	now := s.clock.Now()
	if err := s.repo.Enrollment.Cancel(ctx, enrollment.EnrollmentID, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		s.logger.Error("取消报名失败", zap.Error(err))
		return nil, err
	}
	enrollment.Status = model.EnrollmentStatusCancelled
	enrollment.CancelledAt = &now

	s.logger.Info("取消报名", zap.String("enrollment_id", enrollment.EnrollmentID))
	s.notify(ctx, enrollment, false)

	resp := toEnrollmentResponse(enrollment)
	return &resp, nil
}

// ── 内部方法 ──

func (s *enrollmentService) ownedChild(ctx context.Context, repo *repository.Repository, parentID, childID string) (*model.Child, error) {
	child, err := repo.Child.GetByID(ctx, childID)
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

// evaluate 取儿童的 active 报名与社团 active 人数，交给 rules.CheckEnrollment 判定
func (s *enrollmentService) evaluate(ctx context.Context, repo *repository.Repository, child *model.Child, club *model.Club) (*rules.Rejection, error) {
	active, err := repo.Enrollment.ListActiveByChild(ctx, child.ChildID)
	if err != nil {
		return nil, err
	}
	count, err := repo.Enrollment.CountActiveByClub(ctx, club.ClubID)
	if err != nil {
		return nil, err
	}

	target, err := ruleClub(club)
	if err != nil {
		return nil, err
	}
	bookings, err := ruleBookings(active)
	if err != nil {
		return nil, err
	}

	return rules.CheckEnrollment(rules.EnrollmentInput{
		Child:           ruleChild(child),
		Club:            target,
		ActiveBookings:  bookings,
		ClubActiveCount: int(count),
		Today:           s.clock.Today(),
	}), nil
}

// notify 发送报名/取消通知；失败只记录告警，不影响报名结果
func (s *enrollmentService) notify(ctx context.Context, e *model.Enrollment, confirmed bool) {
	if s.notifier == nil || e.Child == nil || e.Club == nil {
		return
	}
	parent, err := s.repo.User.GetByID(ctx, e.Child.ParentID)
	if err != nil {
		s.logger.Warn("查询家长失败，跳过通知", zap.Error(err))
		return
	}

	notice := mailer.EnrollmentNotice{
		ParentEmail: parent.Email,
		ParentName:  parent.FullName(),
		ChildName:   e.Child.FullName(),
		ClubName:    e.Club.Name,
		StartDate:   e.Club.StartDate,
		EndDate:     e.Club.EndDate,
		StartTime:   displayClock(e.Club.StartTime),
		EndTime:     displayClock(e.Club.EndTime),
		Frequency:   e.Club.Frequency,
	}
	if confirmed {
		err = s.notifier.EnrollmentConfirmed(ctx, notice)
	} else {
		err = s.notifier.EnrollmentCancelled(ctx, notice)
	}
	if err != nil {
		s.logger.Warn("发送报名通知失败", zap.Error(err), zap.String("enrollment_id", e.EnrollmentID))
	}
}

func isEnrollmentBusinessError(err error) bool {
	var rej *rules.Rejection
	return errors.As(err, &rej) ||
		errors.Is(err, ErrChildNotFound) ||
		errors.Is(err, ErrChildForbidden) ||
		errors.Is(err, ErrClubNotFound)
}
