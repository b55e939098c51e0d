package dto

// ── 直播班次模块 DTO ──

// CreateLiveClassRequest 创建班次请求
// cover_image / trailer_video 为已上传媒体的 URI，由上传服务产出，本模块不解析
type CreateLiveClassRequest struct {
	Name                string   `json:"name"                  binding:"required,min=2,max=200"`
	Description         string   `json:"description"           binding:"max=2000"`
	ArtForm             string   `json:"art_form"              binding:"required"`
	Specialization      string   `json:"specialization"        binding:"required"`
	CoverImage          string   `json:"cover_image"           binding:"omitempty,max=500"`
	TrailerVideo        string   `json:"trailer_video"         binding:"omitempty,max=500"`
	ClassesPerWeek      int      `json:"classes_per_week"      binding:"required,min=1,max=7"`
	ClassDays           []string `json:"class_days"            binding:"required,min=1,max=7"`
	StartTime           string   `json:"start_time"            binding:"required"` // "09:00 AM"
	EndTime             string   `json:"end_time"              binding:"required"`
	FinalEnrollmentDate string   `json:"final_enrollment_date" binding:"required"` // "2006-01-02"
}

// UpdateLiveClassRequest 更新班次请求（全字段；排期字段变化时重新生成场次）
type UpdateLiveClassRequest struct {
	Name                *string  `json:"name"                  binding:"omitempty,min=2,max=200"`
	Description         *string  `json:"description"           binding:"omitempty,max=2000"`
	ArtForm             *string  `json:"art_form"`
	Specialization      *string  `json:"specialization"`
	CoverImage          *string  `json:"cover_image"           binding:"omitempty,max=500"`
	TrailerVideo        *string  `json:"trailer_video"         binding:"omitempty,max=500"`
	ClassesPerWeek      *int     `json:"classes_per_week"      binding:"omitempty,min=1,max=7"`
	ClassDays           []string `json:"class_days"            binding:"omitempty,min=1,max=7"`
	StartTime           *string  `json:"start_time"`
	EndTime             *string  `json:"end_time"`
	FinalEnrollmentDate *string  `json:"final_enrollment_date"`
}

// CancelOccurrenceRequest 取消场次请求
type CancelOccurrenceRequest struct {
	Reason string `json:"reason" binding:"required,min=2,max=500"`
}

// RescheduleOccurrenceRequest 场次改期请求（仅改当日时间）
type RescheduleOccurrenceRequest struct {
	NewStartTime string `json:"new_start_time" binding:"required"`
	NewEndTime   string `json:"new_end_time"   binding:"required"`
}

// ── 响应 ──

// LiveClassResponse 班次响应
type LiveClassResponse struct {
	ID                  string               `json:"id"`
	ArtistID            string               `json:"artist_id"`
	Artist              *UserResponse        `json:"artist,omitempty"`
	Name                string               `json:"name"`
	Description         string               `json:"description,omitempty"`
	ArtForm             string               `json:"art_form"`
	Specialization      string               `json:"specialization"`
	CoverImage          string               `json:"cover_image,omitempty"`
	TrailerVideo        string               `json:"trailer_video,omitempty"`
	ClassesPerWeek      int                  `json:"classes_per_week"`
	ClassDays           []string             `json:"class_days"`
	StartTime           string               `json:"start_time"`
	EndTime             string               `json:"end_time"`
	FinalEnrollmentDate string               `json:"final_enrollment_date"`
	EnrolledCount       int                  `json:"enrolled_count"`
	Occurrences         []OccurrenceResponse `json:"occurrences,omitempty"`
	CreatedAt           string               `json:"created_at"`
	UpdatedAt           string               `json:"updated_at"`
}

// OccurrenceResponse 场次响应
type OccurrenceResponse struct {
	ID           string `json:"id"`
	ClassID      string `json:"class_id"`
	StartsAt     string `json:"starts_at"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	CancelReason string `json:"cancel_reason,omitempty"`
}
