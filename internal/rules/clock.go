package rules

import (
	"fmt"
	"time"
)

// Clock 一天内的时刻，以距 00:00 的秒数表示
type Clock int

// clockLayouts 接受的时刻格式：表单提交 "15:04"，PostgreSQL time 列返回 "15:04:05"
var clockLayouts = []string{"15:04", "15:04:05"}

// ParseClock 解析 "HH:MM" 或 "HH:MM:SS"
func ParseClock(s string) (Clock, error) {
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// MustClock 解析失败时 panic，只用于已校验过的输入
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String 格式化为 "HH:MM"（有秒时为 "HH:MM:SS"）
func (c Clock) String() string {
	h, m, s := int(c)/3600, int(c)%3600/60, int(c)%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// HMS 固定格式 "HH:MM:SS"，写入数据库 time 列
func (c Clock) HMS() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, int(c)%3600/60, int(c)%60)
}

// Window 社团的日期区间 [StartDate, EndDate]（闭区间）与每日时段 [StartTime, EndTime)（半开区间）
type Window struct {
	StartDate time.Time
	EndDate   time.Time
	StartTime Clock
	EndTime   Clock
}

// DatesOverlap 两个闭区间日期范围是否相交: A.end ≥ B.start 且 A.start ≤ B.end
func (w Window) DatesOverlap(o Window) bool {
	return !dateBefore(w.EndDate, o.StartDate) && !dateBefore(o.EndDate, w.StartDate)
}

// TimesOverlap 两个半开时段是否相交: s1 < e2 且 s2 < e1（首尾相接不算冲突）
func (w Window) TimesOverlap(o Window) bool {
	return w.StartTime < o.EndTime && o.StartTime < w.EndTime
}

// Conflicts 日期范围相交且时段相交才视为冲突
func (w Window) Conflicts(o Window) bool {
	return w.DatesOverlap(o) && w.TimesOverlap(o)
}
