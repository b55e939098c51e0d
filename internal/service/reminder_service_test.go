package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SantaKoska/Artistry-Hub-sub000/config"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/model"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/notifier"
)

// ── 测试辅助 ──

func setupReminderService() (ReminderService, LiveClassService, *testRepos) {
	repos := newTestRepos()
	cfg := testConfig()
	logger := zap.NewNop()
	remSvc := NewReminderService(cfg, repos.repo, notifier.NewNop(), logger)
	classSvc := NewLiveClassService(cfg, repos.repo, logger)
	return remSvc, classSvc, repos
}

// seedClassWithStudent 建班次、注册艺术家与一名学生并报名，返回班次 ID 与首场
func seedClassWithStudent(t *testing.T, classSvc LiveClassService, repos *testRepos) (string, model.ClassOccurrence) {
	t.Helper()
	repos.users.users["artist-1"] = &model.User{UserID: "artist-1", Name: "王艺术家", Email: "artist@example.com", Role: model.RoleArtist}
	repos.users.users["student-1"] = &model.User{UserID: "student-1", Name: "李学员", Email: "student@example.com", Role: model.RoleStudent}

	created, err := classSvc.Create(context.Background(), "artist-1", validCreateRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if err := classSvc.Enroll(context.Background(), created.ID, "student-1"); err != nil {
		t.Fatalf("Enroll 应成功: %v", err)
	}
	occs, _ := repos.occ.ListByClass(context.Background(), created.ID)
	if len(occs) == 0 {
		t.Fatal("应至少有一个场次")
	}
	return created.ID, occs[0]
}

// makeDue 把指定场次某类提醒任务的触发时间拨到过去，返回任务 ID
func makeDue(t *testing.T, repos *testRepos, occurrenceID, kind string, overdue time.Duration) string {
	t.Helper()
	for id, j := range repos.jobs.jobs {
		if j.OccurrenceID == occurrenceID && j.Kind == kind {
			j.FireAt = time.Now().Add(-overdue)
			return id
		}
	}
	t.Fatalf("未找到场次 %s 的 %s 提醒任务", occurrenceID, kind)
	return ""
}

func notificationsOfType(repos *testRepos, kind string) []*model.Notification {
	var result []*model.Notification
	for _, n := range repos.noti.notifications {
		if n.Type == kind {
			result = append(result, n)
		}
	}
	return result
}

// ── buildReminderJobs 测试 ──

func TestBuildReminderJobs_LeadTimes(t *testing.T) {
	sched := &config.SchedulerConfig{
		DayReminderLead:  24 * time.Hour,
		SoonReminderLead: 15 * time.Minute,
	}
	starts := time.Date(2026, 9, 7, 9, 0, 0, 0, time.Local)
	occs := []model.ClassOccurrence{
		{OccurrenceID: "occ-a", ClassID: "class-1", StartsAt: starts},
	}

	jobs := buildReminderJobs(sched, "class-1", occs)
	if len(jobs) != 2 {
		t.Fatalf("每个场次应装配 2 道提醒，实际 %d", len(jobs))
	}
	for _, j := range jobs {
		if j.Status != model.ReminderPending {
			t.Errorf("新任务状态应为 pending，实际 %s", j.Status)
		}
		switch j.Kind {
		case model.ReminderKindDayBefore:
			if want := starts.Add(-24 * time.Hour); !j.FireAt.Equal(want) {
				t.Errorf("24 小时提醒触发时间期望 %v，实际 %v", want, j.FireAt)
			}
		case model.ReminderKindSoon:
			if want := starts.Add(-15 * time.Minute); !j.FireAt.Equal(want) {
				t.Errorf("15 分钟提醒触发时间期望 %v，实际 %v", want, j.FireAt)
			}
		default:
			t.Errorf("未知提醒类型 %s", j.Kind)
		}
	}
}

// ── DispatchDue 测试 ──

func TestReminderService_Dispatch_DayBefore(t *testing.T) {
	remSvc, classSvc, repos := setupReminderService()
	_, occ := seedClassWithStudent(t, classSvc, repos)

	jobID := makeDue(t, repos, occ.OccurrenceID, model.ReminderKindDayBefore, time.Minute)

	if err := remSvc.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue 应成功: %v", err)
	}

	if repos.jobs.jobs[jobID].Status != model.ReminderSent {
		t.Errorf("派发后任务应为 sent，实际 %s", repos.jobs.jobs[jobID].Status)
	}
	if repos.jobs.jobs[jobID].SentAt == nil {
		t.Errorf("派发后应记录 sent_at")
	}

	// 收件人：艺术家 + 已报名学生
	rows := notificationsOfType(repos, model.NotificationReminderDay)
	if len(rows) != 2 {
		t.Fatalf("24 小时提醒应发给艺术家与学生共 2 人，实际 %d", len(rows))
	}
	got := map[string]bool{}
	for _, n := range rows {
		got[n.UserID] = true
		if !strings.Contains(n.Content, "24 小时后") {
			t.Errorf("24 小时提醒正文异常: %s", n.Content)
		}
	}
	if !got["artist-1"] || !got["student-1"] {
		t.Errorf("收件人应含 artist-1 与 student-1，实际 %v", got)
	}
}

func TestReminderService_Dispatch_SoonWithRoomLinks(t *testing.T) {
	remSvc, classSvc, repos := setupReminderService()
	classID, occ := seedClassWithStudent(t, classSvc, repos)

	makeDue(t, repos, occ.OccurrenceID, model.ReminderKindSoon, time.Minute)

	if err := remSvc.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue 应成功: %v", err)
	}

	rows := notificationsOfType(repos, model.NotificationReminderSoon)
	if len(rows) != 2 {
		t.Fatalf("15 分钟提醒应发给 2 人，实际 %d", len(rows))
	}
	// 教室链接按角色区分：艺术家 host、学生 join
	prefix := "http://localhost:8080/live-classes/" + classID + "/room/" + occ.OccurrenceID
	for _, n := range rows {
		switch n.UserID {
		case "artist-1":
			if !strings.Contains(n.Content, prefix+"?role=host") {
				t.Errorf("艺术家提醒应含 host 链接: %s", n.Content)
			}
		case "student-1":
			if !strings.Contains(n.Content, prefix+"?role=join") {
				t.Errorf("学生提醒应含 join 链接: %s", n.Content)
			}
		default:
			t.Errorf("预期外的收件人 %s", n.UserID)
		}
	}
}

func TestReminderService_Dispatch_AlreadySentNotRefired(t *testing.T) {
	remSvc, classSvc, repos := setupReminderService()
	_, occ := seedClassWithStudent(t, classSvc, repos)

	jobID := makeDue(t, repos, occ.OccurrenceID, model.ReminderKindDayBefore, time.Minute)

	if err := remSvc.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue 应成功: %v", err)
	}
	first := len(notificationsOfType(repos, model.NotificationReminderDay))

	// 第二轮扫描不应重复派发
	if err := remSvc.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue 应成功: %v", err)
	}
	second := len(notificationsOfType(repos, model.NotificationReminderDay))
	if first != second {
		t.Errorf("已派发任务不应重复触发: %d → %d", first, second)
	}
	if repos.jobs.jobs[jobID].Status != model.ReminderSent {
		t.Errorf("任务状态应保持 sent")
	}
}

func TestReminderService_Dispatch_CancelledOccurrenceVoidsJob(t *testing.T) {
	remSvc, classSvc, repos := setupReminderService()
	_, occ := seedClassWithStudent(t, classSvc, repos)

	jobID := makeDue(t, repos, occ.OccurrenceID, model.ReminderKindDayBefore, time.Minute)
	// 场次已被取消，但任务漏作废——派发时兜底清理
	repos.occ.occurrences[occ.OccurrenceID].Status = model.OccurrenceCancelled

	if err := remSvc.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue 应成功: %v", err)
	}

	if repos.jobs.jobs[jobID].Status != model.ReminderCancelled {
		t.Errorf("失效场次的任务应作废，实际 %s", repos.jobs.jobs[jobID].Status)
	}
	if n := len(notificationsOfType(repos, model.NotificationReminderDay)); n != 0 {
		t.Errorf("失效场次不应派发提醒，实际 %d 条", n)
	}
}

func TestReminderService_Dispatch_MissingOccurrenceVoidsJob(t *testing.T) {
	remSvc, classSvc, repos := setupReminderService()
	_, occ := seedClassWithStudent(t, classSvc, repos)

	jobID := makeDue(t, repos, occ.OccurrenceID, model.ReminderKindSoon, time.Minute)
	delete(repos.occ.occurrences, occ.OccurrenceID)

	if err := remSvc.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue 应成功: %v", err)
	}

	if repos.jobs.jobs[jobID].Status != model.ReminderCancelled {
		t.Errorf("场次已不存在的任务应作废，实际 %s", repos.jobs.jobs[jobID].Status)
	}
}

func TestReminderService_Dispatch_OverdueBacklogStillFires(t *testing.T) {
	remSvc, classSvc, repos := setupReminderService()
	_, occ := seedClassWithStudent(t, classSvc, repos)

	// 模拟停机积压：触发时间早已过去数小时，场次仍在未来
	jobID := makeDue(t, repos, occ.OccurrenceID, model.ReminderKindDayBefore, 6*time.Hour)

	if err := remSvc.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue 应成功: %v", err)
	}

	if repos.jobs.jobs[jobID].Status != model.ReminderSent {
		t.Errorf("逾期积压任务应照常补发，实际 %s", repos.jobs.jobs[jobID].Status)
	}
}

func TestReminderService_Dispatch_NothingDue(t *testing.T) {
	remSvc, classSvc, repos := setupReminderService()
	seedClassWithStudent(t, classSvc, repos)

	// 把全部任务触发时间拨到未来
	for _, j := range repos.jobs.jobs {
		j.FireAt = time.Now().Add(time.Hour)
	}

	if err := remSvc.DispatchDue(context.Background()); err != nil {
		t.Fatalf("DispatchDue 应成功: %v", err)
	}
	if n := len(repos.noti.notifications); n != 0 {
		t.Errorf("无到期任务时不应产生通知，实际 %d 条", n)
	}
}
