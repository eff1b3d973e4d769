package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-bookings/backend/internal/model"
	"club-bookings/backend/internal/repository"
	"club-bookings/backend/internal/rules"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("failed to generate export file")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ClubRoster 社团 active 报名名单（Excel），仅社团创建者可导出
	ClubRoster(ctx context.Context, teacherID, clubID string) (*bytes.Buffer, string, error)
	// ChildCalendar 儿童 active 报名的 iCalendar 日程
	ChildCalendar(ctx context.Context, parentID, childID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, clock Clock, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, clock: clock, logger: logger}
}

// rosterHeaders 名单表头
var rosterHeaders = []string{
	"Child", "Date of birth", "Age", "Allergies", "Special needs",
	"Emergency contact", "Emergency phone", "Enrolled at",
}

// ═══════════════════════════════════════════════════════════
// ClubRoster — 社团名单导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：社团名称与排期
//   - 第 2 行：表头
//   - 之后每行一名 active 报名的儿童（按姓、名排序）

func (s *exportService) ClubRoster(ctx context.Context, teacherID, clubID string) (*bytes.Buffer, string, error) {
	// 1. 查询社团并校验归属
	club, err := s.repo.Club.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrClubNotFound
		}
		s.logger.Error("查询社团失败", zap.Error(err))
		return nil, "", err
	}
	if club.TeacherID != teacherID {
		return nil, "", ErrClubForbidden
	}

	// 2. 查询 active 报名
	list, err := s.repo.Enrollment.List(ctx, repository.EnrollmentFilter{
		ClubID: clubID,
		Status: model.EnrollmentStatusActive,
	})
	if err != nil {
		s.logger.Error("查询社团名单失败", zap.Error(err))
		return nil, "", err
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Roster"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "C", 12)
	f.SetColWidth(sheetName, "D", "E", 30)
	f.SetColWidth(sheetName, "F", "G", 20)
	f.SetColWidth(sheetName, "H", "H", 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s (%s to %s, %s-%s, %s) %d/%d enrolled",
		club.Name, formatDate(club.StartDate), formatDate(club.EndDate),
		displayClock(club.StartTime), displayClock(club.EndTime), club.Frequency,
		len(list), club.Capacity))
	lastCol := colName(len(rosterHeaders) - 1)
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range rosterHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(lastCol, 2), headerStyle)

	// 数据行
	today := s.clock.Today()
	row := 3
	for _, e := range list {
		if e.Child == nil {
			continue
		}
		c := e.Child
		values := []interface{}{
			c.FullName(),
			formatDate(c.DateOfBirth),
			rules.AgeOn(c.DateOfBirth, today),
			c.AllergyInfo,
			c.SpecialNeeds,
			c.EmergencyContactName,
			c.EmergencyContactPhone,
			e.EnrolledAt.In(s.clock.loc).Format("2006-01-02 15:04"),
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("roster_%s.xlsx", slug(club.Name)), nil
}

// ═══════════════════════════════════════════════════════════
// ChildCalendar — 儿童日程导出为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 每条 active 报名一个 VEVENT：
//   - 首次活动 = start_date 当天 start_time ~ end_time（业务时区）
//   - daily / weekly 附带 RRULE，UNTIL 为 end_date 当天的结束时刻
//   - one-off 不带 RRULE

func (s *exportService) ChildCalendar(ctx context.Context, parentID, childID string) (*bytes.Buffer, string, error) {
	child, err := s.repo.Child.GetByID(ctx, childID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrChildNotFound
		}
		s.logger.Error("查询儿童失败", zap.Error(err))
		return nil, "", err
	}
	if child.ParentID != parentID {
		return nil, "", ErrChildForbidden
	}

	active, err := s.repo.Enrollment.ListActiveByChild(ctx, childID)
	if err != nil {
		s.logger.Error("查询儿童报名失败", zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//club-bookings//clubs//EN")
	cal.SetXWRCalName(child.FullName() + " clubs")

	stamp := s.clock.Now().UTC()
	for _, e := range active {
		if e.Club == nil {
			continue
		}
		if err := s.addClubEvent(cal, &e, child, stamp); err != nil {
			s.logger.Error("生成日程失败", zap.Error(err), zap.String("club_id", e.ClubID))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("%s.ics", slug(child.FullName())), nil
}

func (s *exportService) addClubEvent(cal *ics.Calendar, e *model.Enrollment, child *model.Child, stamp time.Time) error {
	w, err := clubWindow(e.Club)
	if err != nil {
		return err
	}
	start := s.at(e.Club.StartDate, w.StartTime)
	end := s.at(e.Club.StartDate, w.EndTime)

	event := cal.AddEvent(e.EnrollmentID + "@club-bookings")
	event.SetDtStampTime(stamp)
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(e.Club.Name)
	event.SetDescription(fmt.Sprintf("%s is enrolled in %s.", child.FullName(), e.Club.Name))

	var freq string
	switch e.Club.Frequency {
	case rules.FrequencyDaily:
		freq = "DAILY"
	case rules.FrequencyWeekly:
		freq = "WEEKLY"
	}
	if freq != "" {
		until := s.at(e.Club.EndDate, w.EndTime).UTC()
		event.AddRrule(fmt.Sprintf("FREQ=%s;UNTIL=%s", freq, until.Format("20060102T150405Z")))
	}
	return nil
}

// at 日期 + 时刻 → 业务时区的时间点
func (s *exportService) at(day time.Time, c rules.Clock) time.Time {
	y, m, d := day.Date()
	sec := int(c)
	return time.Date(y, m, d, sec/3600, sec%3600/60, sec%60, 0, s.clock.loc)
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// slug 文件名只保留字母数字，其余替换为 '-'
func slug(s string) string {
	out := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToLower(r)
		}
		return '-'
	}, strings.TrimSpace(s))
	out = strings.Trim(out, "-")
	if out == "" {
		return "export"
	}
	return out
}
