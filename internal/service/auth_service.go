package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/model"
	"club-bookings/backend/internal/repository"
	"club-bookings/backend/internal/rules"
	"club-bookings/backend/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("this account has been disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService 认证业务接口
type AuthService interface {
	// Signup 注册并直接登录
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Refresh 轮换 Token 对，旧 refresh token 进入黑名单
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 注销 access token（jti），refreshToken 非空时一并注销
	Logout(ctx context.Context, claims *jwt.Claims, refreshToken string) error
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	tokens TokenStore
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:   repo,
		jwtMgr: jwtMgr,
		tokens: tokens,
		logger: logger,
	}
}

func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.TokenResponse, error) {
	// 1. 表单校验
	fields := rules.SignupFields{
		Email:           rules.NormalizeEmail(req.Email),
		FirstName:       strings.TrimSpace(req.FirstName),
		Surname:         strings.TrimSpace(req.Surname),
		Role:            strings.TrimSpace(req.Role),
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	}
	if errs := rules.ValidateSignup(fields); !errs.Empty() {
		return nil, errs
	}

	// 2. 邮箱查重（唯一索引兜底）
	exists, err := s.repo.User.ExistsByEmail(ctx, fields.Email)
	if err != nil {
		s.logger.Error("查询邮箱失败", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, emailTaken()
	}

	// 3. 创建用户
	hash, err := bcrypt.GenerateFromPassword([]byte(fields.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}
	user := &model.User{
		Email:        fields.Email,
		PasswordHash: string(hash),
		FirstName:    fields.FirstName,
		Surname:      fields.Surname,
		Role:         fields.Role,
		IsActive:     true,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, emailTaken()
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("新用户注册", zap.String("user_id", user.UserID), zap.String("role", user.Role))
	return s.issueTokens(user, false)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, rules.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	// 3. 生成 Token 对
	return s.issueTokens(user, req.RememberMe)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	if s.tokens != nil {
		revoked, err := s.tokens.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("查询 Token 黑名单失败", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	s.revoke(ctx, claims)
	return s.issueTokens(user, claims.RememberMe)
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims, refreshToken string) error {
	if claims != nil {
		s.revoke(ctx, claims)
	}
	if refreshToken != "" {
		if rc, err := s.jwtMgr.ParseToken(refreshToken); err == nil && rc.TokenType == jwt.TokenTypeRefresh {
			s.revoke(ctx, rc)
		}
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ── 内部方法 ──

func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		RememberMe:   rememberMe,
		User:         toUserResponse(user),
	}, nil
}

// revoke 加入黑名单；Redis 不可用时只记录告警，不阻断注销
func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) {
	if s.tokens == nil {
		s.logger.Warn("Token 黑名单不可用，跳过注销", zap.String("user_id", claims.UserID))
		return
	}
	if err := s.tokens.BlacklistToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		s.logger.Warn("Token 加入黑名单失败", zap.Error(err), zap.String("jti", claims.ID))
	}
}

func emailTaken() rules.FieldErrors {
	errs := rules.FieldErrors{}
	errs.Add("email", rules.MsgEmailTaken)
	return errs
}
