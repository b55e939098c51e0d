package service

import (
	"go.uber.org/zap"

	"github.com/SantaKoska/Artistry-Hub-sub000/config"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/notifier"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/repository"
	"github.com/SantaKoska/Artistry-Hub-sub000/pkg/jwt"
	"github.com/SantaKoska/Artistry-Hub-sub000/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	LiveClass    LiveClassService
	Occurrence   OccurrenceService
	Reminder     ReminderService
	Notification NotificationService
	Export       ExportService
	Calendar     CalendarService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	n notifier.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		LiveClass:    NewLiveClassService(cfg, repo, logger),
		Occurrence:   NewOccurrenceService(cfg, repo, n, logger),
		Reminder:     NewReminderService(cfg, repo, n, logger),
		Notification: NewNotificationService(repo, logger),
		Export:       NewExportService(repo, logger),
		Calendar:     NewCalendarService(repo, logger),
	}
}
