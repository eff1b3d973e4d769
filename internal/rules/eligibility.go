package rules

import (
	"fmt"
	"time"
)

// Reason 报名被拒的原因
type Reason string

// 按判定顺序排列：先命中的规则决定返回的原因
const (
	ReasonTooYoung         Reason = "too_young"
	ReasonTooOld           Reason = "too_old"
	ReasonAlreadyEnrolled  Reason = "already_enrolled"
	ReasonClubFull         Reason = "club_full"
	ReasonScheduleConflict Reason = "schedule_conflict"
)

// Rejection 报名资格校验失败的结果，Message 原样展示给家长
type Rejection struct {
	Reason         Reason
	Message        string
	ConflictClubID string // 仅 ReasonScheduleConflict 时有值
}

func (r *Rejection) Error() string { return r.Message }

// Child 参与资格判断的儿童信息
type Child struct {
	ID          string
	FirstName   string
	Surname     string
	DateOfBirth time.Time
}

// FullName "名 姓"
func (c Child) FullName() string {
	return c.FirstName + " " + c.Surname
}

// Club 参与资格判断的社团信息
type Club struct {
	ID       string
	Name     string
	MinAge   int
	MaxAge   int
	Capacity int
	Window
}

// Booking 儿童已有的一条有效报名（附带所属社团的排期）
type Booking struct {
	ClubID   string
	ClubName string
	Window
}

// EnrollmentInput CheckEnrollment 的全部输入
type EnrollmentInput struct {
	Child           Child
	Club            Club
	ActiveBookings  []Booking // 该儿童当前所有 active 报名
	ClubActiveCount int       // 目标社团当前 active 报名数
	Today           time.Time
}

// CheckEnrollment 判断 (child, club) 能否报名；返回 nil 表示可以报名。
//
// 判定顺序固定：年龄下限 → 年龄上限 → 重复报名 → 名额 → 时间冲突，
// 先失败的规则即为返回原因。纯函数，相同输入总是得到相同结果。
func CheckEnrollment(in EnrollmentInput) *Rejection {
	child, club := in.Child, in.Club
	age := AgeOn(child.DateOfBirth, in.Today)

	if age < club.MinAge {
		return &Rejection{
			Reason: ReasonTooYoung,
			Message: fmt.Sprintf("%s is too young for %s. Minimum age is %d.",
				child.FullName(), club.Name, club.MinAge),
		}
	}
	if age > club.MaxAge {
		return &Rejection{
			Reason: ReasonTooOld,
			Message: fmt.Sprintf("%s is too old for %s. Maximum age is %d.",
				child.FullName(), club.Name, club.MaxAge),
		}
	}

	for _, b := range in.ActiveBookings {
		if b.ClubID == club.ID {
			return AlreadyEnrolled(child, club.Name)
		}
	}

	if in.ClubActiveCount >= club.Capacity {
		return &Rejection{
			Reason: ReasonClubFull,
			Message: fmt.Sprintf("%s has reached its maximum capacity of %d children.",
				club.Name, club.Capacity),
		}
	}

	for _, b := range in.ActiveBookings {
		if b.Window.Conflicts(club.Window) {
			return &Rejection{
				Reason: ReasonScheduleConflict,
				Message: fmt.Sprintf("%s is already enrolled in %s which overlaps with %s.",
					child.FullName(), b.ClubName, club.Name),
				ConflictClubID: b.ClubID,
			}
		}
	}

	return nil
}

// AlreadyEnrolled 构造重复报名的拒绝结果（数据库唯一约束冲突时复用同一文案）
func AlreadyEnrolled(child Child, clubName string) *Rejection {
	return &Rejection{
		Reason:  ReasonAlreadyEnrolled,
		Message: fmt.Sprintf("%s is already enrolled in %s.", child.FullName(), clubName),
	}
}
