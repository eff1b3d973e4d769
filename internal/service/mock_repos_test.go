package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-bookings/backend/config"
	"club-bookings/backend/internal/model"
	"club-bookings/backend/internal/repository"
	pkgerrors "club-bookings/backend/pkg/errors"
	"club-bookings/backend/pkg/mailer"
)

// ── 内存数据集 ──

// mockDB 四个 mock repository 共享的内存数据，用来模拟关联预加载与级联删除
type mockDB struct {
	seq         int
	users       map[string]*model.User
	children    map[string]*model.Child
	clubs       map[string]*model.Club
	enrollments map[string]*model.Enrollment
}

func newMockDB() *mockDB {
	return &mockDB{
		users:       make(map[string]*model.User),
		children:    make(map[string]*model.Child),
		clubs:       make(map[string]*model.Club),
		enrollments: make(map[string]*model.Enrollment),
	}
}

func (db *mockDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *mockDB) activeCount(clubID string) int {
	n := 0
	for _, e := range db.enrollments {
		if e.ClubID == clubID && e.IsActive() {
			n++
		}
	}
	return n
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	db        *mockDB
	createErr error
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = m.db.nextID("user")
	}
	cp := *user
	m.db.users[user.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.db.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

// ── Mock ChildRepository ──

type mockChildRepo struct {
	db        *mockDB
	createErr error
}

func (m *mockChildRepo) Create(_ context.Context, child *model.Child) error {
	if m.createErr != nil {
		return m.createErr
	}
	if child.ChildID == "" {
		child.ChildID = m.db.nextID("child")
	}
	cp := *child
	m.db.children[child.ChildID] = &cp
	return nil
}

func (m *mockChildRepo) GetByID(_ context.Context, id string) (*model.Child, error) {
	if c, ok := m.db.children[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockChildRepo) Update(_ context.Context, child *model.Child) error {
	if _, ok := m.db.children[child.ChildID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *child
	m.db.children[child.ChildID] = &cp
	return nil
}

func (m *mockChildRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.db.children[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.db.children, id)
	for eid, e := range m.db.enrollments {
		if e.ChildID == id {
			delete(m.db.enrollments, eid)
		}
	}
	return nil
}

func (m *mockChildRepo) ListByParent(_ context.Context, parentID string) ([]model.Child, error) {
	var result []model.Child
	for _, c := range m.db.children {
		if c.ParentID == parentID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FirstName < result[j].FirstName })
	return result, nil
}

func (m *mockChildRepo) ListByParentWithActiveEnrollments(ctx context.Context, parentID string) ([]model.Child, error) {
	children, _ := m.ListByParent(ctx, parentID)
	for i := range children {
		for _, e := range m.db.enrollments {
			if e.ChildID != children[i].ChildID || !e.IsActive() {
				continue
			}
			cp := *e
			cp.Club = m.db.clubs[e.ClubID]
			children[i].Enrollments = append(children[i].Enrollments, cp)
		}
	}
	return children, nil
}

func (m *mockChildRepo) FindIdentityMatches(_ context.Context, parentID, firstName, surname string, dob time.Time) ([]model.Child, error) {
	var result []model.Child
	for _, c := range m.db.children {
		if parentID != "" && c.ParentID != parentID {
			continue
		}
		if strings.EqualFold(c.FirstName, firstName) && strings.EqualFold(c.Surname, surname) &&
			c.DateOfBirth.Format("2006-01-02") == dob.Format("2006-01-02") {
			result = append(result, *c)
		}
	}
	return result, nil
}

// ── Mock ClubRepository ──

type mockClubRepo struct {
	db        *mockDB
	createErr error
}

func (m *mockClubRepo) Create(_ context.Context, club *model.Club) error {
	if m.createErr != nil {
		return m.createErr
	}
	if club.ClubID == "" {
		club.ClubID = m.db.nextID("club")
	}
	if club.Version == 0 {
		club.Version = 1
	}
	cp := *club
	m.db.clubs[club.ClubID] = &cp
	return nil
}

func (m *mockClubRepo) GetByID(_ context.Context, id string) (*model.Club, error) {
	if c, ok := m.db.clubs[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClubRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Club, error) {
	return m.GetByID(ctx, id)
}

func (m *mockClubRepo) GetWithCount(_ context.Context, id string) (*model.ClubWithCount, error) {
	c, ok := m.db.clubs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	row := m.withCount(c)
	return &row, nil
}

func (m *mockClubRepo) FindByNameFold(_ context.Context, name string) ([]model.Club, error) {
	var result []model.Club
	for _, c := range m.db.clubs {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockClubRepo) List(_ context.Context, filter repository.ClubFilter) ([]model.ClubWithCount, int64, error) {
	var result []model.ClubWithCount
	for _, c := range m.db.clubs {
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.ActiveOn != nil && c.EndDate.Before(*filter.ActiveOn) {
			continue
		}
		result = append(result, m.withCount(c))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	total := int64(len(result))
	if filter.Limit > 0 {
		if filter.Offset >= len(result) {
			return nil, total, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[filter.Offset:end]
	}
	return result, total, nil
}

func (m *mockClubRepo) Update(_ context.Context, club *model.Club) error {
	stored, ok := m.db.clubs[club.ClubID]
	if !ok || stored.Version != club.Version {
		return pkgerrors.ErrOptimisticLock
	}
	club.Version++
	cp := *club
	m.db.clubs[club.ClubID] = &cp
	return nil
}

func (m *mockClubRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.db.clubs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.db.clubs, id)
	for eid, e := range m.db.enrollments {
		if e.ClubID == id {
			delete(m.db.enrollments, eid)
		}
	}
	return nil
}

func (m *mockClubRepo) withCount(c *model.Club) model.ClubWithCount {
	row := model.ClubWithCount{Club: *c, ActiveCount: m.db.activeCount(c.ClubID)}
	if t, ok := m.db.users[c.TeacherID]; ok {
		row.TeacherName = t.FullName()
	}
	return row
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	db        *mockDB
	createErr error
}

func (m *mockEnrollmentRepo) Create(_ context.Context, e *model.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.db.enrollments {
		if existing.ChildID == e.ChildID && existing.ClubID == e.ClubID {
			return gorm.ErrDuplicatedKey
		}
	}
	if e.EnrollmentID == "" {
		e.EnrollmentID = m.db.nextID("enrollment")
	}
	cp := *e
	cp.Child, cp.Club = nil, nil
	m.db.enrollments[e.EnrollmentID] = &cp
	return nil
}

func (m *mockEnrollmentRepo) GetByID(_ context.Context, id string) (*model.Enrollment, error) {
	e, ok := m.db.enrollments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.preload(e), nil
}

func (m *mockEnrollmentRepo) GetByChildAndClub(_ context.Context, childID, clubID string) (*model.Enrollment, error) {
	for _, e := range m.db.enrollments {
		if e.ChildID == childID && e.ClubID == clubID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) ListActiveByChild(_ context.Context, childID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.db.enrollments {
		if e.ChildID == childID && e.IsActive() {
			result = append(result, *m.preload(e))
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) CountActiveByClub(_ context.Context, clubID string) (int64, error) {
	return int64(m.db.activeCount(clubID)), nil
}

func (m *mockEnrollmentRepo) List(_ context.Context, filter repository.EnrollmentFilter) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.db.enrollments {
		child := m.db.children[e.ChildID]
		if filter.ParentID != "" && (child == nil || child.ParentID != filter.ParentID) {
			continue
		}
		if filter.ChildID != "" && e.ChildID != filter.ChildID {
			continue
		}
		if filter.ClubID != "" && e.ClubID != filter.ClubID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		result = append(result, *m.preload(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EnrolledAt.Before(result[j].EnrolledAt) })
	return result, nil
}

func (m *mockEnrollmentRepo) Reactivate(_ context.Context, id string, at time.Time) error {
	e, ok := m.db.enrollments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Status = model.EnrollmentStatusActive
	e.EnrolledAt = at
	e.CancelledAt = nil
	return nil
}

func (m *mockEnrollmentRepo) Cancel(_ context.Context, id string, at time.Time) error {
	e, ok := m.db.enrollments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Status = model.EnrollmentStatusCancelled
	e.CancelledAt = &at
	return nil
}

func (m *mockEnrollmentRepo) preload(e *model.Enrollment) *model.Enrollment {
	cp := *e
	if c, ok := m.db.children[e.ChildID]; ok {
		child := *c
		cp.Child = &child
	}
	if c, ok := m.db.clubs[e.ClubID]; ok {
		club := *c
		cp.Club = &club
	}
	return &cp
}

// ── Mock TokenStore ──

type mockTokenStore struct {
	revoked map[string]time.Duration
	err     error
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{revoked: make(map[string]time.Duration)}
}

func (m *mockTokenStore) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *mockTokenStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── Mock Notifier ──

type mockNotifier struct {
	confirmed []mailer.EnrollmentNotice
	cancelled []mailer.EnrollmentNotice
	err       error
}

func (m *mockNotifier) EnrollmentConfirmed(_ context.Context, n mailer.EnrollmentNotice) error {
	m.confirmed = append(m.confirmed, n)
	return m.err
}

func (m *mockNotifier) EnrollmentCancelled(_ context.Context, n mailer.EnrollmentNotice) error {
	m.cancelled = append(m.cancelled, n)
	return m.err
}

// ── 测试环境 ──

// testNow 固定的"现在"：2025-07-24 10:00 UTC
var testNow = time.Date(2025, 7, 24, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	db          *mockDB
	users       *mockUserRepo
	children    *mockChildRepo
	clubs       *mockClubRepo
	enrollments *mockEnrollmentRepo
	repo        *repository.Repository
	clock       Clock
	feature     config.FeatureConfig
	logger      *zap.Logger
}

func newTestEnv() *testEnv {
	db := newMockDB()
	env := &testEnv{
		db:          db,
		users:       &mockUserRepo{db: db},
		children:    &mockChildRepo{db: db},
		clubs:       &mockClubRepo{db: db},
		enrollments: &mockEnrollmentRepo{db: db},
		clock:       NewClock(func() time.Time { return testNow }, time.UTC),
		feature:     config.FeatureConfig{ChildUniquenessScope: "parent", EnrollmentEmails: true},
		logger:      zap.NewNop(),
	}
	env.repo = &repository.Repository{
		User:       env.users,
		Child:      env.children,
		Club:       env.clubs,
		Enrollment: env.enrollments,
	}
	return env
}

func (env *testEnv) addUser(id, role, email string) *model.User {
	u := &model.User{UserID: id, Email: email, FirstName: "Test", Surname: id, Role: role, IsActive: true}
	env.db.users[id] = u
	return u
}

func (env *testEnv) addChild(id, parentID, first, surname string, dob time.Time) *model.Child {
	c := &model.Child{
		ChildID:               id,
		ParentID:              parentID,
		FirstName:             first,
		Surname:               surname,
		DateOfBirth:           dob,
		EmergencyContactName:  "Jane Smith",
		EmergencyContactPhone: "+447123456789",
	}
	env.db.children[id] = c
	return c
}

// addClub 默认：8–15 岁、名额 2、testNow 次日 15:00–16:00 的 one-off
func (env *testEnv) addClub(id, teacherID, name string, opts ...func(*model.Club)) *model.Club {
	day := time.Date(2025, 7, 25, 0, 0, 0, 0, time.UTC)
	c := &model.Club{
		ClubID:    id,
		TeacherID: teacherID,
		Name:      name,
		MinAge:    8,
		MaxAge:    15,
		Capacity:  2,
		StartTime: "15:00:00",
		EndTime:   "16:00:00",
		StartDate: day,
		EndDate:   day,
		Frequency: model.FrequencyOneOff,
	}
	c.Version = 1
	for _, opt := range opts {
		opt(c)
	}
	env.db.clubs[id] = c
	return c
}

func (env *testEnv) addEnrollment(id, childID, clubID, status string) *model.Enrollment {
	e := &model.Enrollment{
		EnrollmentID: id,
		ChildID:      childID,
		ClubID:       clubID,
		Status:       status,
		EnrolledAt:   testNow.Add(-time.Hour),
	}
	env.db.enrollments[id] = e
	return e
}
