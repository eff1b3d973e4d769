package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"club-bookings/backend/internal/dto"
	"club-bookings/backend/internal/model"
	"club-bookings/backend/internal/rules"
	pkgerrors "club-bookings/backend/pkg/errors"
)

func setupTestClubService() (ClubService, *testEnv) {
	env := newTestEnv()
	env.addUser("teacher-1", model.RoleTeacher, "t1@greenfield.sch.uk")
	env.addUser("teacher-2", model.RoleTeacher, "t2@greenfield.sch.uk")
	return NewClubService(env.repo, env.feature, env.clock, env.logger), env
}

func intPtr(v int) *int { return &v }

func clubRequest() *dto.ClubRequest {
	return &dto.ClubRequest{
		Name:        "Chess Club",
		Description: "Learn openings",
		MinAge:      intPtr(8),
		MaxAge:      intPtr(15),
		Capacity:    intPtr(10),
		StartTime:   "15:00",
		EndTime:     "16:30",
		StartDate:   "2025-09-01",
		EndDate:     "2025-12-15",
		Frequency:   rules.FrequencyWeekly,
	}
}

func TestClubService_Create(t *testing.T) {
	svc, env := setupTestClubService()

	club, err := svc.Create(context.Background(), "teacher-1", clubRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	stored := env.db.clubs[club.ID]
	if stored == nil || stored.TeacherID != "teacher-1" {
		t.Fatalf("社团应归属 teacher-1，实际 %+v", stored)
	}
	if stored.StartTime != "15:00:00" || stored.EndTime != "16:30:00" {
		t.Errorf("时刻应以 HH:MM:SS 存储，实际 %s-%s", stored.StartTime, stored.EndTime)
	}
	if club.StartTime != "15:00" || club.Remaining != 10 {
		t.Errorf("响应不符: %+v", club)
	}
}

func TestClubService_Create_ReportsAllErrors(t *testing.T) {
	svc, _ := setupTestClubService()
	req := clubRequest()
	req.MinAge, req.MaxAge = intPtr(16), intPtr(12)
	req.Capacity = intPtr(0)
	req.EndTime = "14:00"
	req.StartDate = "2025-07-01"
	req.EndDate = "not-a-date"

	_, err := svc.Create(context.Background(), "teacher-1", req)
	fe := fieldErrors(t, err)
	for _, field := range []string{"max_age", "capacity", "end_time", "start_date", "end_date"} {
		if !fe.Has(field) {
			t.Errorf("期望 %s 报错，实际: %v", field, fe)
		}
	}
	if fe["end_date"][0] != rules.MsgInvalidDate {
		t.Errorf("期望日期格式错误，实际 %v", fe["end_date"])
	}
	if fe["start_date"][0] != rules.MsgStartDateInPast {
		t.Errorf("期望开始日期已过错误，实际 %v", fe["start_date"])
	}
}

func TestClubService_Create_NameTaken(t *testing.T) {
	svc, env := setupTestClubService()
	env.addClub("club-1", "teacher-2", "chess club")

	_, err := svc.Create(context.Background(), "teacher-1", clubRequest())
	if fe := fieldErrors(t, err); len(fe["name"]) == 0 || fe["name"][0] != rules.MsgClubNameTaken {
		t.Fatalf("期望重名错误，实际: %v", fe)
	}

	env.clubs.createErr = gorm.ErrDuplicatedKey
	req := clubRequest()
	req.Name = "Drama Club"
	_, err = svc.Create(context.Background(), "teacher-1", req)
	if fe := fieldErrors(t, err); !fe.Has("name") {
		t.Fatalf("唯一索引冲突应转成重名错误，实际: %v", fe)
	}
}

func TestClubService_Update(t *testing.T) {
	svc, env := setupTestClubService()
	env.addClub("club-1", "teacher-1", "Chess Club")

	req := clubRequest()
	req.Name = "Chess Club"
	req.Version = 1
	updated, err := svc.Update(context.Background(), "teacher-1", "club-1", req)
	if err != nil {
		t.Fatalf("Update 应成功（同名为自身）: %v", err)
	}
	if updated.Version != 2 || env.db.clubs["club-1"].Frequency != rules.FrequencyWeekly {
		t.Errorf("更新未生效: %+v", updated)
	}

	// 版本过期
	if _, err := svc.Update(context.Background(), "teacher-1", "club-1", req); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
	// 非创建者
	req.Version = 2
	if _, err := svc.Update(context.Background(), "teacher-2", "club-1", req); !errors.Is(err, ErrClubForbidden) {
		t.Errorf("期望 ErrClubForbidden，实际: %v", err)
	}
}

func TestClubService_Update_CapacityBelowActive(t *testing.T) {
	svc, env := setupTestClubService()
	env.addClub("club-1", "teacher-1", "Chess Club", func(c *model.Club) { c.Capacity = 5 })
	for _, id := range []string{"a", "b", "c"} {
		env.addEnrollment("enr-"+id, "child-"+id, "club-1", model.EnrollmentStatusActive)
	}
	env.addEnrollment("enr-d", "child-d", "club-1", model.EnrollmentStatusCancelled)

	req := clubRequest()
	req.Version = 1
	req.Capacity = intPtr(2)
	_, err := svc.Update(context.Background(), "teacher-1", "club-1", req)
	if fe := fieldErrors(t, err); !fe.Has("capacity") {
		t.Fatalf("期望 capacity 报错，实际: %v", fe)
	}

	req.Capacity = intPtr(3)
	if _, err := svc.Update(context.Background(), "teacher-1", "club-1", req); err != nil {
		t.Fatalf("名额等于 active 人数应允许: %v", err)
	}
}

// lockedClubRepo 记录加锁顺序；onLock 模拟在获得行锁前已提交的并发报名
type lockedClubRepo struct {
	*mockClubRepo
	calls  *[]string
	onLock func()
}

func (r lockedClubRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Club, error) {
	*r.calls = append(*r.calls, "lock")
	if r.onLock != nil {
		r.onLock()
	}
	return r.mockClubRepo.GetByIDForUpdate(ctx, id)
}

func (r lockedClubRepo) Update(ctx context.Context, club *model.Club) error {
	*r.calls = append(*r.calls, "update")
	return r.mockClubRepo.Update(ctx, club)
}

type countedEnrollmentRepo struct {
	*mockEnrollmentRepo
	calls *[]string
}

func (r countedEnrollmentRepo) CountActiveByClub(ctx context.Context, clubID string) (int64, error) {
	*r.calls = append(*r.calls, "count")
	return r.mockEnrollmentRepo.CountActiveByClub(ctx, clubID)
}

func TestClubService_Update_CountsUnderClubLock(t *testing.T) {
	_, env := setupTestClubService()
	env.addClub("club-1", "teacher-1", "Chess Club", func(c *model.Club) { c.Capacity = 10 })
	for _, id := range []string{"a", "b", "c"} {
		env.addEnrollment("enr-"+id, "child-"+id, "club-1", model.EnrollmentStatusActive)
	}

	var calls []string
	env.repo.Club = lockedClubRepo{
		mockClubRepo: env.clubs,
		calls:        &calls,
		onLock: func() {
			if env.db.enrollments["enr-d"] == nil {
				env.addEnrollment("enr-d", "child-d", "club-1", model.EnrollmentStatusActive)
			}
		},
	}
	env.repo.Enrollment = countedEnrollmentRepo{mockEnrollmentRepo: env.enrollments, calls: &calls}
	svc := NewClubService(env.repo, env.feature, env.clock, env.logger)

	req := clubRequest()
	req.Version = 1
	req.Capacity = intPtr(3)
	_, err := svc.Update(context.Background(), "teacher-1", "club-1", req)
	fe := fieldErrors(t, err)
	if want := "Capacity cannot be lower than the 4 children already enrolled."; len(fe["capacity"]) == 0 || fe["capacity"][0] != want {
		t.Fatalf("锁内计数应包含并发报名，实际: %v", fe)
	}
	if env.db.clubs["club-1"].Capacity != 10 {
		t.Errorf("被拒绝的更新不应生效，capacity=%d", env.db.clubs["club-1"].Capacity)
	}

	calls = calls[:0]
	req.Capacity = intPtr(4)
	if _, err := svc.Update(context.Background(), "teacher-1", "club-1", req); err != nil {
		t.Fatalf("名额等于锁内 active 人数应允许: %v", err)
	}
	if got := strings.Join(calls, ","); got != "lock,count,update" {
		t.Errorf("期望先加锁再计数再更新，实际 %s", got)
	}
}

func TestClubService_Update_StartedClub(t *testing.T) {
	svc, env := setupTestClubService()
	env.addClub("club-1", "teacher-1", "Chess Club")

	req := clubRequest()
	req.Version = 1
	req.StartDate = "2025-07-01"

	if _, err := svc.Update(context.Background(), "teacher-1", "club-1", req); err != nil {
		t.Fatalf("默认编辑已开始的社团不检查开始日期: %v", err)
	}

	env.feature.EnforceStartDateOnEdit = true
	strict := NewClubService(env.repo, env.feature, env.clock, env.logger)
	req.Version = 2
	_, err := strict.Update(context.Background(), "teacher-1", "club-1", req)
	if fe := fieldErrors(t, err); !fe.Has("start_date") {
		t.Fatalf("开启开关后应报开始日期错误，实际: %v", fe)
	}
}

func TestClubService_List(t *testing.T) {
	svc, env := setupTestClubService()
	past := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	env.addClub("club-old", "teacher-1", "Art Club", func(c *model.Club) { c.StartDate, c.EndDate = past, past })
	env.addClub("club-1", "teacher-1", "Chess Club")
	env.addClub("club-2", "teacher-2", "Drama Club", func(c *model.Club) { c.Capacity = 1 })
	env.addEnrollment("enr-1", "child-1", "club-2", model.EnrollmentStatusActive)

	list, total, err := svc.List(context.Background(), &dto.ClubListQuery{})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("默认应隐藏已结束的社团，实际 total=%d", total)
	}
	if list[1].Name != "Drama Club" || list[1].Remaining != 0 || list[1].ActiveCount != 1 {
		t.Errorf("剩余名额不符: %+v", list[1])
	}
	if list[0].TeacherName == "" {
		t.Error("应返回教师姓名")
	}

	_, total, _ = svc.List(context.Background(), &dto.ClubListQuery{IncludePast: true})
	if total != 3 {
		t.Errorf("include_past 应返回全部 3 个，实际 %d", total)
	}

	_, total, _ = svc.List(context.Background(), &dto.ClubListQuery{Search: "dra"})
	if total != 1 {
		t.Errorf("搜索 dra 期望 1 个，实际 %d", total)
	}

	mine, err := svc.ListMine(context.Background(), "teacher-1")
	if err != nil || len(mine) != 2 {
		t.Errorf("teacher-1 期望 2 个社团（含已结束），实际 %d, %v", len(mine), err)
	}
}

func TestClubService_GetAndDelete(t *testing.T) {
	svc, env := setupTestClubService()
	env.addClub("club-1", "teacher-1", "Chess Club")
	env.addEnrollment("enr-1", "child-1", "club-1", model.EnrollmentStatusActive)

	club, err := svc.Get(context.Background(), "club-1")
	if err != nil || club.ActiveCount != 1 {
		t.Fatalf("Get 结果不符: %+v, %v", club, err)
	}
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrClubNotFound) {
		t.Errorf("期望 ErrClubNotFound，实际: %v", err)
	}

	if err := svc.Delete(context.Background(), "teacher-2", "club-1"); !errors.Is(err, ErrClubForbidden) {
		t.Errorf("期望 ErrClubForbidden，实际: %v", err)
	}
	if err := svc.Delete(context.Background(), "teacher-1", "club-1"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := env.db.enrollments["enr-1"]; ok {
		t.Error("报名记录应随社团一并删除")
	}
}
