package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 用户角色
const (
	RoleTeacher = "teacher"
	RoleParent  = "parent"
)

// TeacherEmailSuffix 教师账号必须使用学校邮箱
const TeacherEmailSuffix = ".sch.uk"

// 注册校验文案
const (
	MsgInvalidRole       = "Role must be either teacher or parent."
	MsgTeacherEmail      = "Teachers must sign up with an email address ending in '.sch.uk'."
	MsgPasswordMismatch  = "Passwords do not match."
	MsgPasswordTooShort  = "Password must be at least 8 characters long."
	MsgPasswordUppercase = "Password must contain at least one uppercase letter."
	MsgPasswordDigit     = "Password must contain at least one number."
	MsgPasswordSpecial   = "Password must contain at least one special character."
	MsgEmailTaken        = "Email already registered."
)

// passwordSpecials 视为"特殊字符"的集合
const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// SignupFields 注册表单
type SignupFields struct {
	Email           string
	FirstName       string
	Surname         string
	Role            string
	Password        string
	PasswordConfirm string
}

// ValidateSignup 校验注册表单，密码规则命中第一条即停止（与表单提示逐条引导一致）
func ValidateSignup(f SignupFields) FieldErrors {
	errs := FieldErrors{}

	required := []struct {
		field string
		value string
	}{
		{"email", f.Email},
		{"first_name", f.FirstName},
		{"surname", f.Surname},
		{"role", f.Role},
		{"password", f.Password},
		{"password_confirm", f.PasswordConfirm},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs.Add(r.field, MsgRequired)
		}
	}

	if f.Role != "" && f.Role != RoleTeacher && f.Role != RoleParent {
		errs.Add("role", MsgInvalidRole)
	}
	if f.Role == RoleTeacher && f.Email != "" &&
		!strings.HasSuffix(strings.ToLower(strings.TrimSpace(f.Email)), TeacherEmailSuffix) {
		errs.Add("email", MsgTeacherEmail)
	}

	if f.Password != "" && f.PasswordConfirm != "" {
		if msg := passwordProblem(f.Password, f.PasswordConfirm); msg != "" {
			errs.Add("password", msg)
		}
	}

	return errs
}

func passwordProblem(pw, confirm string) string {
	if pw != confirm {
		return MsgPasswordMismatch
	}
	if utf8.RuneCountInString(pw) < 8 {
		return MsgPasswordTooShort
	}
	var upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	switch {
	case !upper:
		return MsgPasswordUppercase
	case !digit:
		return MsgPasswordDigit
	case !special:
		return MsgPasswordSpecial
	}
	return ""
}

// NormalizeEmail 邮箱统一小写去空格后存储与比较
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
