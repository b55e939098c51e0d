package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SantaKoska/Artistry-Hub-sub000/internal/model"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

// ── Mock LiveClassRepository ──

type mockLiveClassRepo struct {
	classes     map[string]*model.LiveClass
	occurrences *mockOccurrenceRepo
	enrollments *mockEnrollmentRepo
	users       *mockUserRepo
}

func newMockLiveClassRepo(occ *mockOccurrenceRepo, enr *mockEnrollmentRepo, users *mockUserRepo) *mockLiveClassRepo {
	return &mockLiveClassRepo{
		classes:     make(map[string]*model.LiveClass),
		occurrences: occ,
		enrollments: enr,
		users:       users,
	}
}

func (m *mockLiveClassRepo) Create(_ context.Context, class *model.LiveClass) error {
	if class.ClassID == "" {
		class.ClassID = fmt.Sprintf("class-%d", len(m.classes)+1)
	}
	if class.Version == 0 {
		class.Version = 1
	}
	m.classes[class.ClassID] = class
	return nil
}

// GetByID 和真实实现一样带上关联，供服务层读取
func (m *mockLiveClassRepo) GetByID(ctx context.Context, id string) (*model.LiveClass, error) {
	c, ok := m.classes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *c
	if u, err := m.users.GetByID(ctx, c.ArtistID); err == nil {
		clone.Artist = u
	}
	occs, _ := m.occurrences.ListByClass(ctx, id)
	clone.Occurrences = occs
	enrs, _ := m.enrollments.ListByClass(ctx, id)
	clone.Enrollments = enrs
	return &clone, nil
}

func (m *mockLiveClassRepo) ListByArtist(ctx context.Context, artistID string) ([]model.LiveClass, error) {
	var result []model.LiveClass
	for id, c := range m.classes {
		if c.ArtistID == artistID {
			clone, _ := m.GetByID(ctx, id)
			result = append(result, *clone)
		}
	}
	return result, nil
}

func (m *mockLiveClassRepo) ListOpenForEnrollment(ctx context.Context, onOrBefore time.Time) ([]model.LiveClass, error) {
	var result []model.LiveClass
	for id, c := range m.classes {
		if c.EnrollmentOpenAt(onOrBefore) {
			clone, _ := m.GetByID(ctx, id)
			result = append(result, *clone)
		}
	}
	return result, nil
}

func (m *mockLiveClassRepo) ListByStudent(ctx context.Context, studentID string) ([]model.LiveClass, error) {
	var result []model.LiveClass
	for id := range m.classes {
		enrolled, _ := m.enrollments.Exists(ctx, id, studentID)
		if enrolled {
			clone, _ := m.GetByID(ctx, id)
			result = append(result, *clone)
		}
	}
	return result, nil
}

func (m *mockLiveClassRepo) ListAllIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.classes))
	for id := range m.classes {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockLiveClassRepo) Update(_ context.Context, class *model.LiveClass) error {
	class.Version++
	m.classes[class.ClassID] = class
	return nil
}

func (m *mockLiveClassRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.classes, id)
	return nil
}

// ── Mock OccurrenceRepository ──

type mockOccurrenceRepo struct {
	occurrences map[string]*model.ClassOccurrence
	seq         int
}

func newMockOccurrenceRepo() *mockOccurrenceRepo {
	return &mockOccurrenceRepo{occurrences: make(map[string]*model.ClassOccurrence)}
}

func (m *mockOccurrenceRepo) BatchCreate(_ context.Context, occurrences []model.ClassOccurrence) error {
	for i := range occurrences {
		if occurrences[i].OccurrenceID == "" {
			m.seq++
			occurrences[i].OccurrenceID = fmt.Sprintf("occ-%d", m.seq)
		}
		if occurrences[i].Version == 0 {
			occurrences[i].Version = 1
		}
		clone := occurrences[i]
		m.occurrences[clone.OccurrenceID] = &clone
	}
	return nil
}

func (m *mockOccurrenceRepo) GetByID(_ context.Context, id string) (*model.ClassOccurrence, error) {
	if o, ok := m.occurrences[id]; ok {
		clone := *o
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOccurrenceRepo) ListByClass(_ context.Context, classID string) ([]model.ClassOccurrence, error) {
	var result []model.ClassOccurrence
	for _, o := range m.occurrences {
		if o.ClassID == classID {
			result = append(result, *o)
		}
	}
	// starts_at 升序
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].StartsAt.Before(result[i].StartsAt) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

func (m *mockOccurrenceRepo) Update(_ context.Context, occurrence *model.ClassOccurrence) error {
	if _, ok := m.occurrences[occurrence.OccurrenceID]; !ok {
		return gorm.ErrRecordNotFound
	}
	occurrence.Version++
	clone := *occurrence
	m.occurrences[occurrence.OccurrenceID] = &clone
	return nil
}

func (m *mockOccurrenceRepo) DeleteByIDs(_ context.Context, ids []string, _ string) error {
	for _, id := range ids {
		delete(m.occurrences, id)
	}
	return nil
}

func (m *mockOccurrenceRepo) DeleteByClass(_ context.Context, classID string, _ string) error {
	for id, o := range m.occurrences {
		if o.ClassID == classID {
			delete(m.occurrences, id)
		}
	}
	return nil
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	enrollments map[string]*model.ClassEnrollment // key: classID:studentID
	users       *mockUserRepo
}

func newMockEnrollmentRepo(users *mockUserRepo) *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrollments: make(map[string]*model.ClassEnrollment), users: users}
}

func enrollKey(classID, studentID string) string { return classID + ":" + studentID }

func (m *mockEnrollmentRepo) Create(_ context.Context, e *model.ClassEnrollment) error {
	if e.EnrollmentID == "" {
		e.EnrollmentID = fmt.Sprintf("enr-%d", len(m.enrollments)+1)
	}
	m.enrollments[enrollKey(e.ClassID, e.StudentID)] = e
	return nil
}

func (m *mockEnrollmentRepo) Exists(_ context.Context, classID, studentID string) (bool, error) {
	_, ok := m.enrollments[enrollKey(classID, studentID)]
	return ok, nil
}

func (m *mockEnrollmentRepo) ListByClass(ctx context.Context, classID string) ([]model.ClassEnrollment, error) {
	var result []model.ClassEnrollment
	for _, e := range m.enrollments {
		if e.ClassID == classID {
			clone := *e
			if m.users != nil {
				if u, err := m.users.GetByID(ctx, e.StudentID); err == nil {
					clone.Student = u
				}
			}
			result = append(result, clone)
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) Delete(_ context.Context, classID, studentID string) error {
	delete(m.enrollments, enrollKey(classID, studentID))
	return nil
}

func (m *mockEnrollmentRepo) DeleteByClass(_ context.Context, classID string) error {
	for k, e := range m.enrollments {
		if e.ClassID == classID {
			delete(m.enrollments, k)
		}
	}
	return nil
}

// ── Mock ReminderJobRepository ──

type mockReminderJobRepo struct {
	jobs map[string]*model.ReminderJob
	seq  int
}

func newMockReminderJobRepo() *mockReminderJobRepo {
	return &mockReminderJobRepo{jobs: make(map[string]*model.ReminderJob)}
}

func (m *mockReminderJobRepo) BatchCreate(_ context.Context, jobs []model.ReminderJob) error {
	for i := range jobs {
		if jobs[i].JobID == "" {
			m.seq++
			jobs[i].JobID = fmt.Sprintf("job-%d", m.seq)
		}
		clone := jobs[i]
		m.jobs[clone.JobID] = &clone
	}
	return nil
}

func (m *mockReminderJobRepo) ListDue(_ context.Context, now time.Time, limit int) ([]model.ReminderJob, error) {
	var result []model.ReminderJob
	for _, j := range m.jobs {
		if j.Status == model.ReminderPending && !j.FireAt.After(now) {
			result = append(result, *j)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockReminderJobRepo) MarkSent(_ context.Context, jobID string, sentAt time.Time) error {
	j, ok := m.jobs[jobID]
	if !ok || j.Status != model.ReminderPending {
		return gorm.ErrRecordNotFound
	}
	j.Status = model.ReminderSent
	j.SentAt = &sentAt
	return nil
}

func (m *mockReminderJobRepo) RearmByOccurrence(_ context.Context, occurrenceID, kind string, fireAt time.Time) error {
	for _, j := range m.jobs {
		if j.OccurrenceID == occurrenceID && j.Kind == kind && j.Status == model.ReminderPending {
			j.FireAt = fireAt
		}
	}
	return nil
}

func (m *mockReminderJobRepo) CancelByOccurrence(_ context.Context, occurrenceID string) error {
	for _, j := range m.jobs {
		if j.OccurrenceID == occurrenceID && j.Status == model.ReminderPending {
			j.Status = model.ReminderCancelled
		}
	}
	return nil
}

func (m *mockReminderJobRepo) DeleteByOccurrenceIDs(_ context.Context, occurrenceIDs []string) error {
	for _, occID := range occurrenceIDs {
		for id, j := range m.jobs {
			if j.OccurrenceID == occID {
				delete(m.jobs, id)
			}
		}
	}
	return nil
}

func (m *mockReminderJobRepo) ListPendingByOccurrence(_ context.Context, occurrenceID string) ([]model.ReminderJob, error) {
	var result []model.ReminderJob
	for _, j := range m.jobs {
		if j.OccurrenceID == occurrenceID && j.Status == model.ReminderPending {
			result = append(result, *j)
		}
	}
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications map[string]*model.Notification
	seq           int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*model.Notification)}
}

func (m *mockNotificationRepo) BatchCreate(_ context.Context, notifications []model.Notification) error {
	for i := range notifications {
		if notifications[i].NotificationID == "" {
			m.seq++
			notifications[i].NotificationID = fmt.Sprintf("noti-%d", m.seq)
		}
		clone := notifications[i]
		m.notifications[clone.NotificationID] = &clone
	}
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return n, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var all []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		all = append(all, *n)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string) error {
	n, ok := m.notifications[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.IsRead = true
	return nil
}

// ── 聚合 ──

// testRepos 一套互相接线好的 mock Repository
type testRepos struct {
	repo  *repository.Repository
	users *mockUserRepo
	class *mockLiveClassRepo
	occ   *mockOccurrenceRepo
	enr   *mockEnrollmentRepo
	jobs  *mockReminderJobRepo
	noti  *mockNotificationRepo
}

func newTestRepos() *testRepos {
	users := newMockUserRepo()
	occ := newMockOccurrenceRepo()
	enr := newMockEnrollmentRepo(users)
	class := newMockLiveClassRepo(occ, enr, users)
	jobs := newMockReminderJobRepo()
	noti := newMockNotificationRepo()

	return &testRepos{
		repo: &repository.Repository{
			User:         users,
			LiveClass:    class,
			Occurrence:   occ,
			Enrollment:   enr,
			ReminderJob:  jobs,
			Notification: noti,
		},
		users: users,
		class: class,
		occ:   occ,
		enr:   enr,
		jobs:  jobs,
		noti:  noti,
	}
}
