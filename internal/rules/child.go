package rules

import (
	"regexp"
	"strings"
	"time"
)

// 儿童年龄允许范围（含端点）
const (
	ChildMinAge = 4
	ChildMaxAge = 18
)

// 儿童查重范围
const (
	ScopeParent = "parent"
	ScopeGlobal = "global"
)

// 儿童校验文案
const (
	MsgChildAgeRange     = "Child age must be between 4 and 18 years."
	MsgInvalidPhone      = "Enter a valid phone number (digits, spaces or hyphens, optionally starting with +)."
	MsgChildAlreadyKnown = "A child with these details is already registered."
)

// phonePattern 可选的前导 '+'，随后 7–15 个数字、空格或连字符
var phonePattern = regexp.MustCompile(`^\+?[0-9 \-]{7,15}$`)

// IsValidPhone 紧急联系电话格式校验
func IsValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ChildFields 待校验的儿童表单字段
type ChildFields struct {
	FirstName             string
	Surname               string
	DateOfBirth           *time.Time
	EmergencyContactName  string
	EmergencyContactPhone string
}

// ChildRef 查重用的已有儿童记录
type ChildRef struct {
	ID          string
	ParentID    string
	FirstName   string
	Surname     string
	DateOfBirth time.Time
}

// ChildOptions 儿童校验上下文
type ChildOptions struct {
	Today    time.Time
	ParentID string // 当前家长，Scope 为 parent 时只与其名下儿童比较
	Scope    string // ScopeParent（默认）| ScopeGlobal
}

// ValidateChild 校验儿童表单，返回全部字段错误；重复登记记在 NonFieldKey 下。
func ValidateChild(f ChildFields, existing []ChildRef, editingID string, opts ChildOptions) FieldErrors {
	errs := FieldErrors{}

	required := []struct {
		field string
		value string
	}{
		{"first_name", f.FirstName},
		{"surname", f.Surname},
		{"emergency_contact_name", f.EmergencyContactName},
		{"emergency_contact_phone", f.EmergencyContactPhone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs.Add(r.field, MsgRequired)
		}
	}

	if f.DateOfBirth == nil {
		errs.Add("date_of_birth", MsgRequired)
	} else {
		age := AgeOn(*f.DateOfBirth, opts.Today)
		if age < ChildMinAge || age > ChildMaxAge {
			errs.Add("date_of_birth", MsgChildAgeRange)
		}
	}

	if phone := strings.TrimSpace(f.EmergencyContactPhone); phone != "" && !IsValidPhone(phone) {
		errs.Add("emergency_contact_phone", MsgInvalidPhone)
	}

	if f.DateOfBirth != nil && f.FirstName != "" && f.Surname != "" {
		if isDuplicateChild(f, existing, editingID, opts) {
			errs.Add(NonFieldKey, MsgChildAlreadyKnown)
		}
	}

	return errs
}

func isDuplicateChild(f ChildFields, existing []ChildRef, editingID string, opts ChildOptions) bool {
	first := strings.TrimSpace(f.FirstName)
	surname := strings.TrimSpace(f.Surname)
	for _, c := range existing {
		if c.ID == editingID {
			continue
		}
		if opts.Scope != ScopeGlobal && c.ParentID != opts.ParentID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(c.FirstName), first) &&
			strings.EqualFold(strings.TrimSpace(c.Surname), surname) &&
			sameDate(c.DateOfBirth, *f.DateOfBirth) {
			return true
		}
	}
	return false
}
