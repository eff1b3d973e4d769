package service

import (
	"fmt"
	"time"

	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/model"
	"club-bookings/backend/internal/rules"
)

// ── model → rules ──

func ruleChild(c *model.Child) rules.Child {
	return rules.Child{
		ID:          c.ChildID,
		FirstName:   c.FirstName,
		Surname:     c.Surname,
		DateOfBirth: c.DateOfBirth,
	}
}

func clubWindow(c *model.Club) (rules.Window, error) {
	start, err := rules.ParseClock(c.StartTime)
	if err != nil {
		return rules.Window{}, fmt.Errorf("社团 %s 开始时间无效: %w", c.ClubID, err)
	}
	end, err := rules.ParseClock(c.EndTime)
	if err != nil {
		return rules.Window{}, fmt.Errorf("社团 %s 结束时间无效: %w", c.ClubID, err)
	}
	return rules.Window{StartDate: c.StartDate, EndDate: c.EndDate, StartTime: start, EndTime: end}, nil
}

func ruleClub(c *model.Club) (rules.Club, error) {
	w, err := clubWindow(c)
	if err != nil {
		return rules.Club{}, err
	}
	return rules.Club{
		ID:       c.ClubID,
		Name:     c.Name,
		MinAge:   c.MinAge,
		MaxAge:   c.MaxAge,
		Capacity: c.Capacity,
		Window:   w,
	}, nil
}

// ruleBookings 预加载了 Club 的 active 报名 → 排期列表
func ruleBookings(enrollments []model.Enrollment) ([]rules.Booking, error) {
	out := make([]rules.Booking, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Club == nil {
			continue
		}
		w, err := clubWindow(e.Club)
		if err != nil {
			return nil, err
		}
		out = append(out, rules.Booking{ClubID: e.ClubID, ClubName: e.Club.Name, Window: w})
	}
	return out, nil
}

// ── model → dto ──

func formatDate(t time.Time) string { return t.Format(dto.DateLayout) }

func formatDateTime(t time.Time) string { return t.UTC().Format(dto.DateTimeLayout) }

// displayClock 数据库中的 "15:00:00" / "15:00:00.000000" → "15:00"
func displayClock(s string) string {
	c, err := rules.ParseClock(s)
	if err != nil {
		return s
	}
	return c.String()
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.UserID,
		Email:     u.Email,
		FirstName: u.FirstName,
		Surname:   u.Surname,
		Role:      u.Role,
		CreatedAt: formatDateTime(u.CreatedAt),
	}
}

func toChildResponse(c *model.Child, today time.Time) dto.ChildResponse {
	return dto.ChildResponse{
		ID:                    c.ChildID,
		FirstName:             c.FirstName,
		Surname:               c.Surname,
		FullName:              c.FullName(),
		DateOfBirth:           formatDate(c.DateOfBirth),
		Age:                   rules.AgeOn(c.DateOfBirth, today),
		AllergyInfo:           c.AllergyInfo,
		EmergencyContactName:  c.EmergencyContactName,
		EmergencyContactPhone: c.EmergencyContactPhone,
		SpecialNeeds:          c.SpecialNeeds,
		CreatedAt:             formatDateTime(c.CreatedAt),
	}
}

func toClubBrief(c *model.Club) dto.ClubBrief {
	return dto.ClubBrief{
		ID:        c.ClubID,
		Name:      c.Name,
		StartTime: displayClock(c.StartTime),
		EndTime:   displayClock(c.EndTime),
		StartDate: formatDate(c.StartDate),
		EndDate:   formatDate(c.EndDate),
		Frequency: c.Frequency,
	}
}

func toClubResponse(c *model.Club, activeCount int, teacherName string) dto.ClubResponse {
	remaining := c.Capacity - activeCount
	if remaining < 0 {
		remaining = 0
	}
	return dto.ClubResponse{
		ID:          c.ClubID,
		TeacherID:   c.TeacherID,
		TeacherName: teacherName,
		Name:        c.Name,
		Description: c.Description,
		MinAge:      c.MinAge,
		MaxAge:      c.MaxAge,
		Capacity:    c.Capacity,
		ActiveCount: activeCount,
		Remaining:   remaining,
		StartTime:   displayClock(c.StartTime),
		EndTime:     displayClock(c.EndTime),
		StartDate:   formatDate(c.StartDate),
		EndDate:     formatDate(c.EndDate),
		Frequency:   c.Frequency,
		Version:     c.Version,
		CreatedAt:   formatDateTime(c.CreatedAt),
	}
}

func toClubWithCountResponse(c *model.ClubWithCount) dto.ClubResponse {
	return toClubResponse(&c.Club, c.ActiveCount, c.TeacherName)
}

func toEnrollmentResponse(e *model.Enrollment) dto.EnrollmentResponse {
	resp := dto.EnrollmentResponse{
		ID:         e.EnrollmentID,
		Status:     e.Status,
		EnrolledAt: formatDateTime(e.EnrolledAt),
	}
	if e.CancelledAt != nil {
		s := formatDateTime(*e.CancelledAt)
		resp.CancelledAt = &s
	}
	if e.Child != nil {
		resp.Child = dto.ChildBrief{ID: e.Child.ChildID, FullName: e.Child.FullName()}
	} else {
		resp.Child = dto.ChildBrief{ID: e.ChildID}
	}
	if e.Club != nil {
		resp.Club = toClubBrief(e.Club)
	} else {
		resp.Club = dto.ClubBrief{ID: e.ClubID}
	}
	return resp
}

// utcDate 业务日期转成 UTC 零点，与数据库 date 列比较
func utcDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
