package rules

import (
	"strings"
	"time"
)

// 社团频率
const (
	FrequencyOneOff = "one-off"
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// 社团校验文案
const (
	MsgClubNameTaken      = "A club with this name already exists."
	MsgMaxAgeBelowMinAge  = "Maximum age must be greater than or equal to minimum age."
	MsgEndDateBeforeStart = "End date must be on or after the start date."
	MsgEndTimeNotAfter    = "End time must be after start time."
	MsgOneOffSameDay      = "One-off events must start and end on the same day."
	MsgCapacityPositive   = "Capacity must be at least 1."
	MsgStartDateInPast    = "Start date cannot be in the past."
	MsgInvalidFrequency   = "Select a valid choice. Frequency must be one-off, daily or weekly."
)

// ClubFields 待校验的社团表单字段；指针为 nil 表示未填写
type ClubFields struct {
	Name      string
	MinAge    *int
	MaxAge    *int
	Capacity  *int
	StartTime string
	EndTime   string
	StartDate *time.Time
	EndDate   *time.Time
	Frequency string
}

// ClubRef 查重用的已有社团
type ClubRef struct {
	ID   string
	Name string
}

// ClubOptions 社团校验上下文
type ClubOptions struct {
	Today time.Time
	// EnforceStartDateOnEdit 为 false 时"开始日期不能早于今天"只在创建时检查
	EnforceStartDateOnEdit bool
}

// IsValidFrequency 频率是否为 one-off / daily / weekly 之一
func IsValidFrequency(f string) bool {
	switch f {
	case FrequencyOneOff, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// ValidateClub 校验社团表单，返回全部违规字段（不在第一条错误处停止）。
// editingID 非空表示编辑：查重时排除自身，并按 opts 决定是否检查开始日期。
func ValidateClub(f ClubFields, existing []ClubRef, editingID string, opts ClubOptions) FieldErrors {
	errs := FieldErrors{}

	name := strings.TrimSpace(f.Name)
	if name == "" {
		errs.Add("name", MsgRequired)
	} else {
		for _, c := range existing {
			if c.ID != editingID && strings.EqualFold(strings.TrimSpace(c.Name), name) {
				errs.Add("name", MsgClubNameTaken)
				break
			}
		}
	}

	// ── 年龄 ──
	if f.MinAge == nil {
		errs.Add("min_age", MsgRequired)
	} else if *f.MinAge < 0 {
		errs.Add("min_age", MsgInvalidValue)
	}
	if f.MaxAge == nil {
		errs.Add("max_age", MsgRequired)
	} else if *f.MaxAge < 0 {
		errs.Add("max_age", MsgInvalidValue)
	}
	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		errs.Add("max_age", MsgMaxAgeBelowMinAge)
	}

	// ── 名额 ──
	if f.Capacity == nil {
		errs.Add("capacity", MsgRequired)
	} else if *f.Capacity <= 0 {
		errs.Add("capacity", MsgCapacityPositive)
	}

	// ── 时段 ──
	start, startOK := parseClockField(errs, "start_time", f.StartTime)
	end, endOK := parseClockField(errs, "end_time", f.EndTime)
	if startOK && endOK && start >= end {
		errs.Add("end_time", MsgEndTimeNotAfter)
	}

	// ── 频率 ──
	if f.Frequency == "" {
		errs.Add("frequency", MsgRequired)
	} else if !IsValidFrequency(f.Frequency) {
		errs.Add("frequency", MsgInvalidFrequency)
	}

	// ── 日期 ──
	if f.StartDate == nil {
		errs.Add("start_date", MsgRequired)
	}
	if f.EndDate == nil {
		errs.Add("end_date", MsgRequired)
	}
	if f.StartDate != nil && f.EndDate != nil {
		if dateBefore(*f.EndDate, *f.StartDate) {
			errs.Add("end_date", MsgEndDateBeforeStart)
		}
		if f.Frequency == FrequencyOneOff && !sameDate(*f.StartDate, *f.EndDate) {
			errs.Add("end_date", MsgOneOffSameDay)
		}
	}
	if f.StartDate != nil && (editingID == "" || opts.EnforceStartDateOnEdit) {
		if dateBefore(*f.StartDate, opts.Today) {
			errs.Add("start_date", MsgStartDateInPast)
		}
	}

	return errs
}

func parseClockField(errs FieldErrors, field, value string) (Clock, bool) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, MsgRequired)
		return 0, false
	}
	c, err := ParseClock(strings.TrimSpace(value))
	if err != nil {
		errs.Add(field, MsgInvalidTime)
		return 0, false
	}
	return c, true
}
