package dto

// ── 认证模块 DTO ──

// SignupRequest 注册请求
// 必填、角色、密码强度由 rules.ValidateSignup 统一校验，这里只约束格式与长度
type SignupRequest struct {
	Email           string `json:"email"            binding:"omitempty,email,max=255"`
	FirstName       string `json:"first_name"       binding:"max=100"`
	Surname         string `json:"surname"          binding:"max=100"`
	Role            string `json:"role"`
	Password        string `json:"password"         binding:"max=128"`
	PasswordConfirm string `json:"password_confirm" binding:"max=128"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email      string `json:"email"    binding:"required,email"`
	Password   string `json:"password" binding:"required,notblank"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"` // 非 Cookie 模式时使用
}

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	RememberMe   bool         `json:"-"`          // 决定 refresh cookie 的 MaxAge
	User         UserResponse `json:"user"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}
