package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SantaKoska/Artistry-Hub-sub000/internal/dto"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/model"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/notifier"
)

// ── 测试辅助 ──

func setupOccurrenceService() (OccurrenceService, LiveClassService, *testRepos) {
	repos := newTestRepos()
	cfg := testConfig()
	logger := zap.NewNop()
	occSvc := NewOccurrenceService(cfg, repos.repo, notifier.NewNop(), logger)
	classSvc := NewLiveClassService(cfg, repos.repo, logger)
	return occSvc, classSvc, repos
}

// createClassWithWindow 建一个班次并返回其 ID 与按时间升序的场次
func createClassWithWindow(t *testing.T, classSvc LiveClassService, repos *testRepos) (string, []model.ClassOccurrence) {
	t.Helper()
	created, err := classSvc.Create(context.Background(), "artist-1", validCreateRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	occs, _ := repos.occ.ListByClass(context.Background(), created.ID)
	if len(occs) != 4 {
		t.Fatalf("期望初始 4 个场次，实际 %d", len(occs))
	}
	return created.ID, occs
}

// ── Cancel 测试 ──

func TestOccurrenceService_Cancel_BackfillsOne(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	// 取消最早一场（距今必然超过 24 小时的才可取消，窗口首场可能在 24h 内，取第二场）
	target := occs[1]
	result, err := occSvc.Cancel(context.Background(), classID, target.OccurrenceID, "artist-1",
		&dto.CancelOccurrenceRequest{Reason: "艺术家临时有事"})
	if err != nil {
		t.Fatalf("Cancel 应成功: %v", err)
	}
	if result.Status != model.OccurrenceCancelled {
		t.Errorf("期望状态 cancelled，实际 %s", result.Status)
	}
	if result.CancelReason != "艺术家临时有事" {
		t.Errorf("取消原因未记录")
	}

	// 取消后未来 scheduled 总量应恢复为 4（补排了一场）
	after, _ := repos.occ.ListByClass(context.Background(), classID)
	now := time.Now()
	upcoming := 0
	var latest, backfilled time.Time
	for _, o := range after {
		if o.IsUpcoming(now) {
			upcoming++
			if o.StartsAt.After(backfilled) {
				backfilled = o.StartsAt
			}
		}
	}
	for _, o := range occs {
		if o.StartsAt.After(latest) {
			latest = o.StartsAt
		}
	}
	if upcoming != 4 {
		t.Errorf("取消后未来场次应补回 4 个，实际 %d", upcoming)
	}
	// 补排场次应晚于原窗口最晚一场，且落在允许的星期
	if !backfilled.After(latest) {
		t.Errorf("补排场次 %v 应晚于原最晚场次 %v", backfilled, latest)
	}
	wd := backfilled.Weekday().String()
	if wd != "Monday" && wd != "Wednesday" {
		t.Errorf("补排场次落在 %s，应为 Monday/Wednesday", wd)
	}

	// 被取消场次的 pending 提醒任务应作废
	pending, _ := repos.jobs.ListPendingByOccurrence(context.Background(), target.OccurrenceID)
	if len(pending) != 0 {
		t.Errorf("取消后不应再有 pending 提醒任务，实际 %d", len(pending))
	}
}

func TestOccurrenceService_Cancel_LeadTimeTooShort(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	// 手动把首场挪到 2 小时后
	target := occs[0]
	target.StartsAt = time.Now().Add(2 * time.Hour)
	repos.occ.occurrences[target.OccurrenceID].StartsAt = target.StartsAt

	_, err := occSvc.Cancel(context.Background(), classID, target.OccurrenceID, "artist-1",
		&dto.CancelOccurrenceRequest{Reason: "来不及了"})
	if !errors.Is(err, ErrLeadTimeTooShort) {
		t.Errorf("期望 ErrLeadTimeTooShort，实际: %v", err)
	}
}

func TestOccurrenceService_Cancel_ExactlyAtLeadBoundary(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	// 恰好 24 小时（闭区间）应允许；留 1 秒余量避免执行耗时越界
	target := occs[0]
	repos.occ.occurrences[target.OccurrenceID].StartsAt = time.Now().Add(24*time.Hour + time.Second)

	_, err := occSvc.Cancel(context.Background(), classID, target.OccurrenceID, "artist-1",
		&dto.CancelOccurrenceRequest{Reason: "边界测试"})
	if err != nil {
		t.Errorf("恰好 24 小时提前量应允许取消: %v", err)
	}
}

func TestOccurrenceService_Cancel_TerminalStates(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	cancelled := occs[1]
	if _, err := occSvc.Cancel(context.Background(), classID, cancelled.OccurrenceID, "artist-1",
		&dto.CancelOccurrenceRequest{Reason: "第一次"}); err != nil {
		t.Fatalf("首次取消应成功: %v", err)
	}

	// 再取消同一场：终态不可再操作
	if _, err := occSvc.Cancel(context.Background(), classID, cancelled.OccurrenceID, "artist-1",
		&dto.CancelOccurrenceRequest{Reason: "第二次"}); !errors.Is(err, ErrOccurrenceTerminal) {
		t.Errorf("重复取消应返回 ErrOccurrenceTerminal，实际: %v", err)
	}

	// completed 场次同理
	done := occs[2]
	repos.occ.occurrences[done.OccurrenceID].Status = model.OccurrenceCompleted
	if _, err := occSvc.Cancel(context.Background(), classID, done.OccurrenceID, "artist-1",
		&dto.CancelOccurrenceRequest{Reason: "已完成"}); !errors.Is(err, ErrOccurrenceTerminal) {
		t.Errorf("取消已完成场次应返回 ErrOccurrenceTerminal，实际: %v", err)
	}
}

func TestOccurrenceService_Cancel_NotOwner(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	_, err := occSvc.Cancel(context.Background(), classID, occs[1].OccurrenceID, "artist-2",
		&dto.CancelOccurrenceRequest{Reason: "不是我的课"})
	if !errors.Is(err, ErrNotClassOwner) {
		t.Errorf("期望 ErrNotClassOwner，实际: %v", err)
	}
}

func TestOccurrenceService_Cancel_NotifiesEnrolled(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	repos.users.users["student-1"] = &model.User{UserID: "student-1", Name: "学生一", Email: "s1@example.com", Role: model.RoleStudent}
	repos.users.users["student-2"] = &model.User{UserID: "student-2", Name: "学生二", Email: "s2@example.com", Role: model.RoleStudent}
	if err := classSvc.Enroll(context.Background(), classID, "student-1"); err != nil {
		t.Fatalf("Enroll 应成功: %v", err)
	}
	if err := classSvc.Enroll(context.Background(), classID, "student-2"); err != nil {
		t.Fatalf("Enroll 应成功: %v", err)
	}

	if _, err := occSvc.Cancel(context.Background(), classID, occs[1].OccurrenceID, "artist-1",
		&dto.CancelOccurrenceRequest{Reason: "设备故障"}); err != nil {
		t.Fatalf("Cancel 应成功: %v", err)
	}

	count := 0
	artistNotified := false
	for _, n := range repos.noti.notifications {
		if n.Type == model.NotificationClassCancelled {
			count++
			if n.UserID == "artist-1" {
				artistNotified = true
			}
		}
	}
	// 艺术家和每位已报名学生各一条
	if count != 3 {
		t.Errorf("取消通知应发给艺术家与 2 位学生共 3 条，实际 %d", count)
	}
	if !artistNotified {
		t.Errorf("艺术家应收到取消通知")
	}
}

func TestOccurrenceService_Cancel_WindowClosed(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	// 截止日改到昨天：场次仍在远未来也不可取消
	repos.class.classes[classID].FinalEnrollmentDate = time.Now().AddDate(0, 0, -1)

	_, err := occSvc.Cancel(context.Background(), classID, occs[1].OccurrenceID, "artist-1",
		&dto.CancelOccurrenceRequest{Reason: "窗口已关"})
	if !errors.Is(err, ErrEnrollmentClosed) {
		t.Errorf("窗口关闭后取消应返回 ErrEnrollmentClosed，实际: %v", err)
	}
	got, _ := repos.occ.GetByID(context.Background(), occs[1].OccurrenceID)
	if got.Status != model.OccurrenceScheduled {
		t.Errorf("被拒的取消不应改动场次状态，实际 %s", got.Status)
	}
}

// ── Reschedule 测试 ──

func TestOccurrenceService_Reschedule_TimeOnly(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	target := occs[1]
	result, err := occSvc.Reschedule(context.Background(), classID, target.OccurrenceID, "artist-1",
		&dto.RescheduleOccurrenceRequest{NewStartTime: "02:00 PM", NewEndTime: "03:30 PM"})
	if err != nil {
		t.Fatalf("Reschedule 应成功: %v", err)
	}

	starts, _ := time.Parse(time.RFC3339, result.StartsAt)
	if starts.Hour() != 14 || starts.Minute() != 0 {
		t.Errorf("改期后时刻应为 14:00，实际 %02d:%02d", starts.Hour(), starts.Minute())
	}
	// 日期保持不变
	if starts.Year() != target.StartsAt.Year() || starts.YearDay() != target.StartsAt.YearDay() {
		t.Errorf("改期仅应改时间，日期从 %v 变成了 %v", target.StartsAt, starts)
	}
	if result.StartTime != "02:00 PM" || result.EndTime != "03:30 PM" {
		t.Errorf("时间串未更新: %s - %s", result.StartTime, result.EndTime)
	}

	// 提醒任务应对齐新时刻
	pending, _ := repos.jobs.ListPendingByOccurrence(context.Background(), target.OccurrenceID)
	if len(pending) != 2 {
		t.Fatalf("改期后应仍有 2 个 pending 提醒任务，实际 %d", len(pending))
	}
	for _, j := range pending {
		var wantLead time.Duration
		switch j.Kind {
		case model.ReminderKindDayBefore:
			wantLead = 24 * time.Hour
		case model.ReminderKindSoon:
			wantLead = 15 * time.Minute
		}
		if got := starts.Sub(j.FireAt); got != wantLead {
			t.Errorf("%s 提醒提前量期望 %v，实际 %v", j.Kind, wantLead, got)
		}
	}
}

func TestOccurrenceService_Reschedule_InvalidDuration(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	_, err := occSvc.Reschedule(context.Background(), classID, occs[1].OccurrenceID, "artist-1",
		&dto.RescheduleOccurrenceRequest{NewStartTime: "02:00 PM", NewEndTime: "02:30 PM"})
	if !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("期望 ErrInvalidDuration，实际: %v", err)
	}
}

func TestOccurrenceService_Reschedule_WindowClosed(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	repos.class.classes[classID].FinalEnrollmentDate = time.Now().AddDate(0, 0, -1)

	_, err := occSvc.Reschedule(context.Background(), classID, occs[1].OccurrenceID, "artist-1",
		&dto.RescheduleOccurrenceRequest{NewStartTime: "02:00 PM", NewEndTime: "03:30 PM"})
	if !errors.Is(err, ErrEnrollmentClosed) {
		t.Errorf("窗口关闭后改期应返回 ErrEnrollmentClosed，实际: %v", err)
	}
}

// ── MaintainClass 测试 ──

func TestOccurrenceService_Maintain_PromotesPastOccurrences(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	// 首场挪到昨天
	repos.occ.occurrences[occs[0].OccurrenceID].StartsAt = time.Now().AddDate(0, 0, -1)

	if err := occSvc.MaintainClass(context.Background(), classID); err != nil {
		t.Fatalf("MaintainClass 应成功: %v", err)
	}

	promoted, _ := repos.occ.GetByID(context.Background(), occs[0].OccurrenceID)
	if promoted.Status != model.OccurrenceCompleted {
		t.Errorf("过期场次应晋级 completed，实际 %s", promoted.Status)
	}

	// 晋级后窗口应补回 4 个未来场次
	after, _ := repos.occ.ListByClass(context.Background(), classID)
	now := time.Now()
	upcoming := 0
	for _, o := range after {
		if o.IsUpcoming(now) {
			upcoming++
		}
	}
	if upcoming != 4 {
		t.Errorf("维护后未来场次应为 4 个，实际 %d", upcoming)
	}
}

func TestOccurrenceService_Maintain_ReseedsFullyStaleWindow(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	// 模拟服务停摆两周：整个窗口全部过期
	for i, o := range occs {
		repos.occ.occurrences[o.OccurrenceID].StartsAt = time.Now().AddDate(0, 0, -(14 - i))
	}

	if err := occSvc.MaintainClass(context.Background(), classID); err != nil {
		t.Fatalf("MaintainClass 应成功: %v", err)
	}

	after, _ := repos.occ.ListByClass(context.Background(), classID)
	now := time.Now()
	completed, upcoming := 0, 0
	for _, o := range after {
		switch {
		case o.Status == model.OccurrenceCompleted:
			completed++
		case o.IsUpcoming(now):
			upcoming++
			if !o.StartsAt.After(now) {
				t.Errorf("续排场次 %v 应在未来", o.StartsAt)
			}
			if wd := o.StartsAt.Weekday().String(); wd != "Monday" && wd != "Wednesday" {
				t.Errorf("续排场次落在 %s，应为 Monday/Wednesday", wd)
			}
		}
	}
	if completed != 4 {
		t.Errorf("过期场次应全部晋级 completed，期望 4 个，实际 %d", completed)
	}
	if upcoming != 4 {
		t.Errorf("停摆恢复后应续排出 4 个未来场次，实际 %d", upcoming)
	}

	// 续排场次均应带上成对的 pending 提醒任务
	pendingJobs := 0
	for _, j := range repos.jobs.jobs {
		if j.Status == model.ReminderPending {
			pendingJobs++
		}
	}
	if pendingJobs != 8 {
		t.Errorf("续排后应有 8 个 pending 提醒任务，实际 %d", pendingJobs)
	}
}

func TestOccurrenceService_Maintain_Idempotent(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, _ := createClassWithWindow(t, classSvc, repos)

	if err := occSvc.MaintainClass(context.Background(), classID); err != nil {
		t.Fatalf("MaintainClass 应成功: %v", err)
	}
	first, _ := repos.occ.ListByClass(context.Background(), classID)

	// 第二轮维护不应产生任何变化
	if err := occSvc.MaintainClass(context.Background(), classID); err != nil {
		t.Fatalf("MaintainClass 应成功: %v", err)
	}
	second, _ := repos.occ.ListByClass(context.Background(), classID)

	if len(first) != len(second) {
		t.Fatalf("重复维护不应增删场次: %d → %d", len(first), len(second))
	}
	for i := range first {
		if first[i].OccurrenceID != second[i].OccurrenceID || first[i].Version != second[i].Version {
			t.Errorf("重复维护不应修改场次 %s", first[i].OccurrenceID)
		}
	}
}

func TestOccurrenceService_Maintain_TrimsExcess(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	// 人为塞入两个多余的未来场次
	var latest time.Time
	for _, o := range occs {
		if o.StartsAt.After(latest) {
			latest = o.StartsAt
		}
	}
	extra := []model.ClassOccurrence{
		{ClassID: classID, StartsAt: latest.AddDate(0, 0, 7), StartTime: "09:00 AM", EndTime: "10:30 AM", Status: model.OccurrenceScheduled},
		{ClassID: classID, StartsAt: latest.AddDate(0, 0, 9), StartTime: "09:00 AM", EndTime: "10:30 AM", Status: model.OccurrenceScheduled},
	}
	if err := repos.occ.BatchCreate(context.Background(), extra); err != nil {
		t.Fatalf("预置场次失败: %v", err)
	}

	if err := occSvc.MaintainClass(context.Background(), classID); err != nil {
		t.Fatalf("MaintainClass 应成功: %v", err)
	}

	after, _ := repos.occ.ListByClass(context.Background(), classID)
	now := time.Now()
	upcoming := 0
	var maxStarts time.Time
	for _, o := range after {
		if o.IsUpcoming(now) {
			upcoming++
			if o.StartsAt.After(maxStarts) {
				maxStarts = o.StartsAt
			}
		}
	}
	if upcoming != 4 {
		t.Errorf("裁剪后未来场次应为 4 个，实际 %d", upcoming)
	}
	// 裁剪应从最晚的开始
	if maxStarts.After(latest) {
		t.Errorf("多余场次应从尾部裁剪，最晚保留 %v，实际 %v", latest, maxStarts)
	}
}

func TestOccurrenceService_Maintain_SkipsCancelledAnchor(t *testing.T) {
	occSvc, classSvc, repos := setupOccurrenceService()
	classID, occs := createClassWithWindow(t, classSvc, repos)

	// 取消最晚一场后维护：补排锚点应取剩余最晚的 scheduled 场次
	var latestID string
	var latest time.Time
	for _, o := range occs {
		if o.StartsAt.After(latest) {
			latest = o.StartsAt
			latestID = o.OccurrenceID
		}
	}
	repos.occ.occurrences[latestID].Status = model.OccurrenceCancelled

	if err := occSvc.MaintainClass(context.Background(), classID); err != nil {
		t.Fatalf("MaintainClass 应成功: %v", err)
	}

	after, _ := repos.occ.ListByClass(context.Background(), classID)
	now := time.Now()
	upcoming := 0
	for _, o := range after {
		if o.IsUpcoming(now) {
			upcoming++
		}
	}
	if upcoming != 4 {
		t.Errorf("取消一场后维护应补回 4 个未来场次，实际 %d", upcoming)
	}
}
