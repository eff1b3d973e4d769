package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/repository"
)

// DashboardService 首页面板
type DashboardService interface {
	Parent(ctx context.Context, userID string) (*dto.ParentDashboardResponse, error)
	Teacher(ctx context.Context, userID string) (*dto.TeacherDashboardResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例
func NewDashboardService(repo *repository.Repository, clock Clock, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, clock: clock, logger: logger}
}

func (s *dashboardService) Parent(ctx context.Context, userID string) (*dto.ParentDashboardResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	children, err := s.repo.Child.ListByParentWithActiveEnrollments(ctx, userID)
	if err != nil {
		s.logger.Error("查询家长面板失败", zap.Error(err))
		return nil, err
	}

	today := s.clock.Today()
	resp := &dto.ParentDashboardResponse{
		User:     toUserResponse(user),
		Children: make([]dto.ChildResponse, 0, len(children)),
	}
	for i := range children {
		c := toChildResponse(&children[i], today)
		for _, e := range children[i].Enrollments {
			if e.Club == nil {
				continue
			}
			brief := toClubBrief(e.Club)
			brief.EnrollmentID = e.EnrollmentID
			c.Enrollments = append(c.Enrollments, brief)
		}
		resp.Children = append(resp.Children, c)
	}
	return resp, nil
}

func (s *dashboardService) Teacher(ctx context.Context, userID string) (*dto.TeacherDashboardResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	rows, _, err := s.repo.Club.List(ctx, repository.ClubFilter{TeacherID: userID})
	if err != nil {
		s.logger.Error("查询教师面板失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.TeacherDashboardResponse{
		User:  toUserResponse(user),
		Clubs: make([]dto.ClubResponse, 0, len(rows)),
	}
	for i := range rows {
		resp.Clubs = append(resp.Clubs, toClubWithCountResponse(&rows[i]))
		resp.TotalActiveCount += rows[i].ActiveCount
	}
	return resp, nil
}
