package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"

	"club-bookings/backend/internal/model"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *testEnv) {
	env := newTestEnv()
	env.addUser("parent-1", model.RoleParent, "p1@example.com")
	env.addChild("child-1", "parent-1", "Tom", "Smith", time.Date(2015, 3, 10, 0, 0, 0, 0, time.UTC))
	env.db.children["child-1"].AllergyInfo = "Peanuts"
	env.addChild("child-2", "parent-1", "Amy", "Jones", time.Date(2016, 6, 1, 0, 0, 0, 0, time.UTC))
	env.addClub("club-1", "teacher-1", "Chess Club")
	env.addClub("club-2", "teacher-1", "Art Club", func(c *model.Club) {
		c.Frequency = model.FrequencyWeekly
		c.StartTime, c.EndTime = "09:00:00", "10:00:00"
		c.EndDate = time.Date(2025, 9, 26, 0, 0, 0, 0, time.UTC)
	})
	env.addEnrollment("enr-1", "child-1", "club-1", model.EnrollmentStatusActive)
	env.addEnrollment("enr-2", "child-2", "club-1", model.EnrollmentStatusActive)
	env.addEnrollment("enr-3", "child-1", "club-2", model.EnrollmentStatusActive)
	return NewExportService(env.repo, env.clock, env.logger), env
}

// ── ClubRoster 测试 ──

func TestExportService_ClubRoster(t *testing.T) {
	svc, _ := setupTestExportService()

	buf, filename, err := svc.ClubRoster(context.Background(), "teacher-1", "club-1")
	if err != nil {
		t.Fatalf("ClubRoster 应成功: %v", err)
	}
	if filename != "roster_chess-club.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}
	// Excel .xlsx 文件以 PK (0x504B) 开头
	if buf.Len() < 2 || buf.Bytes()[0] != 0x50 || buf.Bytes()[1] != 0x4B {
		t.Fatal("输出内容不是有效的 xlsx 文件格式（应以 PK 开头）")
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("读取导出的 Excel 失败: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Roster")
	if err != nil {
		t.Fatalf("读取 Roster 表失败: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("期望 标题+表头+2 名儿童 共 4 行，实际 %d", len(rows))
	}
	if !strings.Contains(rows[0][0], "Chess Club") || !strings.Contains(rows[0][0], "2/2") {
		t.Errorf("标题不符: %s", rows[0][0])
	}
	names := rows[2][0] + "," + rows[3][0]
	if !strings.Contains(names, "Tom Smith") || !strings.Contains(names, "Amy Jones") {
		t.Errorf("名单不符: %s", names)
	}
}

func TestExportService_ClubRoster_Errors(t *testing.T) {
	svc, _ := setupTestExportService()

	if _, _, err := svc.ClubRoster(context.Background(), "teacher-2", "club-1"); !errors.Is(err, ErrClubForbidden) {
		t.Errorf("期望 ErrClubForbidden，实际: %v", err)
	}
	if _, _, err := svc.ClubRoster(context.Background(), "teacher-1", "missing"); !errors.Is(err, ErrClubNotFound) {
		t.Errorf("期望 ErrClubNotFound，实际: %v", err)
	}
}

// ── ChildCalendar 测试 ──

func TestExportService_ChildCalendar(t *testing.T) {
	svc, _ := setupTestExportService()

	buf, filename, err := svc.ChildCalendar(context.Background(), "parent-1", "child-1")
	if err != nil {
		t.Fatalf("ChildCalendar 应成功: %v", err)
	}
	if filename != "tom-smith.ics" {
		t.Errorf("文件名不符: %s", filename)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("解析导出的 ics 失败: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("期望 2 个日程，实际 %d", len(events))
	}

	byName := make(map[string]*ics.VEvent)
	for _, e := range events {
		byName[e.GetProperty(ics.ComponentPropertySummary).Value] = e
	}

	chess := byName["Chess Club"]
	if chess == nil {
		t.Fatal("缺少 Chess Club 日程")
	}
	if p := chess.GetProperty(ics.ComponentPropertyDtStart); p == nil || p.Value != "20250725T150000Z" {
		t.Errorf("Chess Club 开始时间不符: %+v", p)
	}
	if chess.GetProperty(ics.ComponentPropertyRrule) != nil {
		t.Error("one-off 社团不应带 RRULE")
	}

	art := byName["Art Club"]
	if art == nil {
		t.Fatal("缺少 Art Club 日程")
	}
	rrule := art.GetProperty(ics.ComponentPropertyRrule)
	if rrule == nil || rrule.Value != "FREQ=WEEKLY;UNTIL=20250926T100000Z" {
		t.Errorf("Art Club RRULE 不符: %+v", rrule)
	}
}

func TestExportService_ChildCalendar_Forbidden(t *testing.T) {
	svc, _ := setupTestExportService()

	if _, _, err := svc.ChildCalendar(context.Background(), "parent-2", "child-1"); !errors.Is(err, ErrChildForbidden) {
		t.Errorf("期望 ErrChildForbidden，实际: %v", err)
	}
	if _, _, err := svc.ChildCalendar(context.Background(), "parent-1", "missing"); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("期望 ErrChildNotFound，实际: %v", err)
	}
}
