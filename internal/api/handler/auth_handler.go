package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"club-bookings/backend/config"
	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/service"
	"club-bookings/backend/pkg/response"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	cfg     config.AuthConfig
}

// NewAuthHandler 创建 AuthHandler；cfg 为 nil 时使用默认 Cookie 设置
func NewAuthHandler(authSvc service.AuthService, cfg *config.AuthConfig) *AuthHandler {
	h := &AuthHandler{authSvc: authSvc}
	if cfg != nil {
		h.cfg = *cfg
	}
	if h.cfg.RefreshTokenTTLDefault <= 0 {
		h.cfg.RefreshTokenTTLDefault = 24 * time.Hour
	}
	if h.cfg.RefreshTokenTTLRemember <= 0 {
		h.cfg.RefreshTokenTTLRemember = 7 * 24 * time.Hour
	}
	return h
}

// Signup 注册
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	result, err := h.authSvc.Signup(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	response.Created(c, result)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParam, "email and password are required")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	response.OK(c, result)
}

// RefreshToken 刷新 Token：优先读 Cookie，其次读请求体
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := h.refreshTokenFrom(c)
	if token == "" {
		response.BadRequest(c, response.CodeInvalidParam, "refresh token is required")
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), token)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result)
	response.OK(c, result)
}

// Logout 用户登出：access token 与 refresh token 一并加入黑名单
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), claims, h.refreshTokenFrom(c)); err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.clearRefreshCookie(c)
	response.OK(c, nil)
}

// GetCurrentUser 当前登录用户
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.Me(c.Request.Context(), userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, user)
}

// ── Cookie ──

func (h *AuthHandler) refreshTokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(refreshCookieName); err == nil && v != "" {
		return v
	}
	var req dto.RefreshTokenRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	return strings.TrimSpace(req.RefreshToken)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, tokens *dto.TokenResponse) {
	if tokens == nil || tokens.RefreshToken == "" {
		return
	}
	ttl := h.cfg.RefreshTokenTTLDefault
	if tokens.RememberMe {
		ttl = h.cfg.RefreshTokenTTLRemember
	}
	c.SetSameSite(sameSite(h.cfg.Cookie.SameSite))
	c.SetCookie(refreshCookieName, tokens.RefreshToken, int(ttl.Seconds()),
		refreshCookiePath, h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(sameSite(h.cfg.Cookie.SameSite))
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, h.cfg.Cookie.Domain, h.cfg.Cookie.Secure, true)
}

func sameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	if writeValidation(c, 11000, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, err.Error())
	case errors.Is(err, service.ErrAccountDisabled):
		response.Forbidden(c, 11002, err.Error())
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, 11003, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11004, err.Error())
	default:
		response.InternalError(c)
	}
}
