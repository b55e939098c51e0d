package handler

import "github.com/SantaKoska/Artistry-Hub-sub000/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	LiveClass    *LiveClassHandler
	Occurrence   *OccurrenceHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		LiveClass:    NewLiveClassHandler(svc.LiveClass),
		Occurrence:   NewOccurrenceHandler(svc.Occurrence),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export, svc.Calendar),
	}
}
