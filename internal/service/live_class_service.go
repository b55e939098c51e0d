package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SantaKoska/Artistry-Hub-sub000/config"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/dto"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/model"
	"github.com/SantaKoska/Artistry-Hub-sub000/internal/repository"
)

// ── 直播班次模块业务错误 ──

var (
	ErrClassNotFound      = errors.New("班次不存在")
	ErrNotClassOwner      = errors.New("无权操作他人班次")
	ErrDayCountMismatch   = errors.New("上课日数量与每周课次不一致")
	ErrInvalidWeekday     = errors.New("上课日含非法星期名")
	ErrDuplicateClassDay  = errors.New("上课日不可重复")
	ErrInvalidArtForm     = errors.New("艺术门类与专长方向不匹配")
	ErrPastEnrollmentDate = errors.New("报名截止日不可早于今天")
	ErrEnrollmentClosed   = errors.New("报名窗口已关闭")
	ErrAlreadyEnrolled    = errors.New("已报名该班次")
	ErrNotEnrolled        = errors.New("未报名该班次")
)

// LiveClassService 直播班次业务接口
type LiveClassService interface {
	// 创建班次并生成初始场次窗口
	Create(ctx context.Context, artistID string, req *dto.CreateLiveClassRequest) (*dto.LiveClassResponse, error)
	// 班次详情（纯读，不触发任何窗口维护写操作）
	GetByID(ctx context.Context, classID string) (*dto.LiveClassResponse, error)
	// 艺术家名下班次
	ListByArtist(ctx context.Context, artistID string) ([]dto.LiveClassResponse, error)
	// 学生可报名班次（报名窗口开放且尚未报名）
	ListAvailable(ctx context.Context, studentID string) ([]dto.LiveClassResponse, error)
	// 学生已报名班次
	ListEnrolled(ctx context.Context, studentID string) ([]dto.LiveClassResponse, error)
	// 更新班次；排期字段变化时重建未来场次
	Update(ctx context.Context, classID, artistID string, req *dto.UpdateLiveClassRequest) (*dto.LiveClassResponse, error)
	// 删除班次及其场次、报名、提醒任务
	Delete(ctx context.Context, classID, artistID string) error
	// 报名
	Enroll(ctx context.Context, classID, studentID string) error
	// 退出报名
	Unenroll(ctx context.Context, classID, studentID string) error
}

type liveClassService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLiveClassService 创建 LiveClassService 实例
func NewLiveClassService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) LiveClassService {
	return &liveClassService{cfg: cfg, repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Create — 创建班次 + 初始场次窗口 + 提醒任务
// ════════════════════════════════════════════════════════════

func (s *liveClassService) Create(ctx context.Context, artistID string, req *dto.CreateLiveClassRequest) (*dto.LiveClassResponse, error) {
	// 1. 艺术门类配对校验
	if !model.ValidArtFormPair(req.ArtForm, req.Specialization) {
		return nil, ErrInvalidArtForm
	}

	// 2. 排期字段校验
	hour, minute, err := s.validateSchedule(req.ClassDays, req.ClassesPerWeek, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	// 3. 报名截止日：今天或未来（按整天计）
	finalDate, err := time.ParseInLocation("2006-01-02", req.FinalEnrollmentDate, time.Local)
	if err != nil {
		return nil, ErrPastEnrollmentDate
	}
	now := time.Now()
	class := &model.LiveClass{
		ArtistID:            artistID,
		Name:                req.Name,
		Description:         req.Description,
		ArtForm:             req.ArtForm,
		Specialization:      req.Specialization,
		CoverImage:          req.CoverImage,
		TrailerVideo:        req.TrailerVideo,
		ClassesPerWeek:      req.ClassesPerWeek,
		ClassDays:           model.StringArray(req.ClassDays),
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		FinalEnrollmentDate: finalDate,
	}
	if !class.EnrollmentOpenAt(now) {
		return nil, ErrPastEnrollmentDate
	}

	class.CreatedBy = &artistID
	class.UpdatedBy = &artistID
	if err := s.repo.LiveClass.Create(ctx, class); err != nil {
		s.logger.Error("创建班次失败", zap.Error(err))
		return nil, err
	}

	// 4. 生成初始场次窗口
	if err := s.seedOccurrences(ctx, class, now, hour, minute, artistID); err != nil {
		return nil, err
	}

	return s.GetByID(ctx, class.ClassID)
}

// seedOccurrences 从 now 起生成完整未来窗口并装配提醒任务
// 多取一个候选再过滤，避免当日时刻已过的场次落入窗口
func (s *liveClassService) seedOccurrences(ctx context.Context, class *model.LiveClass, now time.Time, hour, minute int, callerID string) error {
	window := s.cfg.Scheduler.UpcomingWindow
	candidates := generateOccurrences(now, class.ClassDays, hour, minute, window+1)

	occurrences := make([]model.ClassOccurrence, 0, window)
	for _, t := range candidates {
		if !t.After(now) {
			continue
		}
		occ := model.ClassOccurrence{
			ClassID:   class.ClassID,
			StartsAt:  t,
			StartTime: class.StartTime,
			EndTime:   class.EndTime,
			Status:    model.OccurrenceScheduled,
		}
		occ.CreatedBy = &callerID
		occ.UpdatedBy = &callerID
		occurrences = append(occurrences, occ)
		if len(occurrences) == window {
			break
		}
	}

	if err := s.repo.Occurrence.BatchCreate(ctx, occurrences); err != nil {
		s.logger.Error("生成场次失败", zap.Error(err), zap.String("class_id", class.ClassID))
		return err
	}

	jobs := buildReminderJobs(&s.cfg.Scheduler, class.ClassID, occurrences)
	if err := s.repo.ReminderJob.BatchCreate(ctx, jobs); err != nil {
		s.logger.Error("装配提醒任务失败", zap.Error(err), zap.String("class_id", class.ClassID))
		return err
	}
	return nil
}

// validateSchedule 校验上课日与时间字段，返回开课时刻（24 小时制）
func (s *liveClassService) validateSchedule(days []string, perWeek int, startTime, endTime string) (hour, minute int, err error) {
	if len(days) != perWeek {
		return 0, 0, ErrDayCountMismatch
	}
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		if !model.IsWeekday(d) {
			return 0, 0, ErrInvalidWeekday
		}
		if seen[d] {
			return 0, 0, ErrDuplicateClassDay
		}
		seen[d] = true
	}

	duration, err := classDuration(startTime, endTime)
	if err != nil {
		return 0, 0, err
	}
	if duration < s.cfg.Scheduler.DurationMin || duration > s.cfg.Scheduler.DurationMax {
		return 0, 0, ErrInvalidDuration
	}

	hour, minute, err = parseClockTime(startTime)
	return hour, minute, err
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *liveClassService) GetByID(ctx context.Context, classID string) (*dto.LiveClassResponse, error) {
	class, err := s.repo.LiveClass.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}

	resp := toLiveClassResponse(class)
	return &resp, nil
}

func (s *liveClassService) ListByArtist(ctx context.Context, artistID string) ([]dto.LiveClassResponse, error) {
	classes, err := s.repo.LiveClass.ListByArtist(ctx, artistID)
	if err != nil {
		s.logger.Error("查询艺术家班次失败", zap.Error(err))
		return nil, err
	}
	return toLiveClassResponses(classes), nil
}

func (s *liveClassService) ListAvailable(ctx context.Context, studentID string) ([]dto.LiveClassResponse, error) {
	now := time.Now()
	classes, err := s.repo.LiveClass.ListOpenForEnrollment(ctx, now)
	if err != nil {
		s.logger.Error("查询可报名班次失败", zap.Error(err))
		return nil, err
	}

	// 过滤已报名的
	result := make([]dto.LiveClassResponse, 0, len(classes))
	for i := range classes {
		enrolled := false
		for _, e := range classes[i].Enrollments {
			if e.StudentID == studentID {
				enrolled = true
				break
			}
		}
		if !enrolled {
			result = append(result, toLiveClassResponse(&classes[i]))
		}
	}
	return result, nil
}

func (s *liveClassService) ListEnrolled(ctx context.Context, studentID string) ([]dto.LiveClassResponse, error) {
	classes, err := s.repo.LiveClass.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询已报名班次失败", zap.Error(err))
		return nil, err
	}
	return toLiveClassResponses(classes), nil
}

// ════════════════════════════════════════════════════════════
// Update — 排期字段变化时重建未来场次
// ════════════════════════════════════════════════════════════

func (s *liveClassService) Update(ctx context.Context, classID, artistID string, req *dto.UpdateLiveClassRequest) (*dto.LiveClassResponse, error) {
	class, err := s.getOwnedClass(ctx, classID, artistID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !class.EnrollmentOpenAt(now) {
		return nil, ErrEnrollmentClosed
	}

	// ── 应用字段 ──
	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	if req.CoverImage != nil {
		class.CoverImage = *req.CoverImage
	}
	if req.TrailerVideo != nil {
		class.TrailerVideo = *req.TrailerVideo
	}
	if req.ArtForm != nil {
		class.ArtForm = *req.ArtForm
	}
	if req.Specialization != nil {
		class.Specialization = *req.Specialization
	}
	if !model.ValidArtFormPair(class.ArtForm, class.Specialization) {
		return nil, ErrInvalidArtForm
	}

	scheduleChanged := false
	if req.ClassesPerWeek != nil && *req.ClassesPerWeek != class.ClassesPerWeek {
		class.ClassesPerWeek = *req.ClassesPerWeek
		scheduleChanged = true
	}
	if req.ClassDays != nil {
		class.ClassDays = model.StringArray(req.ClassDays)
		scheduleChanged = true
	}
	if req.StartTime != nil && *req.StartTime != class.StartTime {
		class.StartTime = *req.StartTime
		scheduleChanged = true
	}
	if req.EndTime != nil && *req.EndTime != class.EndTime {
		class.EndTime = *req.EndTime
		scheduleChanged = true
	}
	if req.FinalEnrollmentDate != nil {
		finalDate, err := time.ParseInLocation("2006-01-02", *req.FinalEnrollmentDate, time.Local)
		if err != nil {
			return nil, ErrPastEnrollmentDate
		}
		class.FinalEnrollmentDate = finalDate
		if !class.EnrollmentOpenAt(now) {
			return nil, ErrPastEnrollmentDate
		}
	}

	hour, minute, err := s.validateSchedule(class.ClassDays, class.ClassesPerWeek, class.StartTime, class.EndTime)
	if err != nil {
		return nil, err
	}

	class.UpdatedBy = &artistID
	if err := s.repo.LiveClass.Update(ctx, class); err != nil {
		s.logger.Error("更新班次失败", zap.Error(err))
		return nil, err
	}

	// ── 排期变化：废弃未来已排期场次并重建窗口 ──
	if scheduleChanged {
		if err := s.rebuildUpcoming(ctx, class, now, hour, minute, artistID); err != nil {
			return nil, err
		}
	}

	return s.GetByID(ctx, classID)
}

// rebuildUpcoming 删除未来 scheduled 场次及其提醒任务后重新生成窗口
// 已取消/已完成的历史场次保持不动
func (s *liveClassService) rebuildUpcoming(ctx context.Context, class *model.LiveClass, now time.Time, hour, minute int, callerID string) error {
	occurrences, err := s.repo.Occurrence.ListByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("查询场次失败", zap.Error(err))
		return err
	}

	var staleIDs []string
	for i := range occurrences {
		if occurrences[i].IsUpcoming(now) {
			staleIDs = append(staleIDs, occurrences[i].OccurrenceID)
		}
	}
	if err := s.repo.ReminderJob.DeleteByOccurrenceIDs(ctx, staleIDs); err != nil {
		s.logger.Error("删除提醒任务失败", zap.Error(err))
		return err
	}
	if err := s.repo.Occurrence.DeleteByIDs(ctx, staleIDs, callerID); err != nil {
		s.logger.Error("删除场次失败", zap.Error(err))
		return err
	}

	return s.seedOccurrences(ctx, class, now, hour, minute, callerID)
}

// ════════════════════════════════════════════════════════════
// Delete
// ════════════════════════════════════════════════════════════

func (s *liveClassService) Delete(ctx context.Context, classID, artistID string) error {
	class, err := s.getOwnedClass(ctx, classID, artistID)
	if err != nil {
		return err
	}

	// 与取消/改期同一窗口约束：截止日过后班次只读
	if !class.EnrollmentOpenAt(time.Now()) {
		return ErrEnrollmentClosed
	}

	occurrences, err := s.repo.Occurrence.ListByClass(ctx, class.ClassID)
	if err != nil {
		s.logger.Error("查询场次失败", zap.Error(err))
		return err
	}
	occIDs := make([]string, 0, len(occurrences))
	for i := range occurrences {
		occIDs = append(occIDs, occurrences[i].OccurrenceID)
	}

	if err := s.repo.ReminderJob.DeleteByOccurrenceIDs(ctx, occIDs); err != nil {
		s.logger.Error("删除提醒任务失败", zap.Error(err))
		return err
	}
	if err := s.repo.Occurrence.DeleteByClass(ctx, classID, artistID); err != nil {
		s.logger.Error("删除场次失败", zap.Error(err))
		return err
	}
	if err := s.repo.Enrollment.DeleteByClass(ctx, classID); err != nil {
		s.logger.Error("删除报名记录失败", zap.Error(err))
		return err
	}
	if err := s.repo.LiveClass.Delete(ctx, classID, artistID); err != nil {
		s.logger.Error("删除班次失败", zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// Enroll / Unenroll
// ════════════════════════════════════════════════════════════

func (s *liveClassService) Enroll(ctx context.Context, classID, studentID string) error {
	class, err := s.repo.LiveClass.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return err
	}

	if !class.EnrollmentOpenAt(time.Now()) {
		return ErrEnrollmentClosed
	}

	exists, err := s.repo.Enrollment.Exists(ctx, classID, studentID)
	if err != nil {
		s.logger.Error("查询报名记录失败", zap.Error(err))
		return err
	}
	if exists {
		return ErrAlreadyEnrolled
	}

	enrollment := &model.ClassEnrollment{
		ClassID:   classID,
		StudentID: studentID,
	}
	if err := s.repo.Enrollment.Create(ctx, enrollment); err != nil {
		s.logger.Error("创建报名记录失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *liveClassService) Unenroll(ctx context.Context, classID, studentID string) error {
	class, err := s.repo.LiveClass.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return err
	}

	if !class.EnrollmentOpenAt(time.Now()) {
		return ErrEnrollmentClosed
	}

	exists, err := s.repo.Enrollment.Exists(ctx, classID, studentID)
	if err != nil {
		s.logger.Error("查询报名记录失败", zap.Error(err))
		return err
	}
	if !exists {
		return ErrNotEnrolled
	}

	return s.repo.Enrollment.Delete(ctx, classID, studentID)
}

// ════════════════════════════════════════════════════════════
// 内部辅助方法
// ════════════════════════════════════════════════════════════

// getOwnedClass 查询班次并校验归属
func (s *liveClassService) getOwnedClass(ctx context.Context, classID, artistID string) (*model.LiveClass, error) {
	class, err := s.repo.LiveClass.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}
	if class.ArtistID != artistID {
		return nil, ErrNotClassOwner
	}
	return class, nil
}

// toLiveClassResponse 转换班次为响应
func toLiveClassResponse(class *model.LiveClass) dto.LiveClassResponse {
	resp := dto.LiveClassResponse{
		ID:                  class.ClassID,
		ArtistID:            class.ArtistID,
		Name:                class.Name,
		Description:         class.Description,
		ArtForm:             class.ArtForm,
		Specialization:      class.Specialization,
		CoverImage:          class.CoverImage,
		TrailerVideo:        class.TrailerVideo,
		ClassesPerWeek:      class.ClassesPerWeek,
		ClassDays:           class.ClassDays,
		StartTime:           class.StartTime,
		EndTime:             class.EndTime,
		FinalEnrollmentDate: class.FinalEnrollmentDate.Format("2006-01-02"),
		EnrolledCount:       len(class.Enrollments),
		CreatedAt:           class.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           class.UpdatedAt.Format(time.RFC3339),
	}

	if class.Artist != nil {
		resp.Artist = &dto.UserResponse{
			ID:    class.Artist.UserID,
			Name:  class.Artist.Name,
			Email: class.Artist.Email,
			Role:  class.Artist.Role,
		}
	}

	resp.Occurrences = make([]dto.OccurrenceResponse, 0, len(class.Occurrences))
	for i := range class.Occurrences {
		resp.Occurrences = append(resp.Occurrences, toOccurrenceResponse(&class.Occurrences[i]))
	}
	return resp
}

func toLiveClassResponses(classes []model.LiveClass) []dto.LiveClassResponse {
	result := make([]dto.LiveClassResponse, 0, len(classes))
	for i := range classes {
		result = append(result, toLiveClassResponse(&classes[i]))
	}
	return result
}

// toOccurrenceResponse 转换场次为响应
func toOccurrenceResponse(occ *model.ClassOccurrence) dto.OccurrenceResponse {
	return dto.OccurrenceResponse{
		ID:           occ.OccurrenceID,
		ClassID:      occ.ClassID,
		StartsAt:     occ.StartsAt.Format(time.RFC3339),
		StartTime:    occ.StartTime,
		EndTime:      occ.EndTime,
		Status:       occ.Status,
		CancelReason: occ.CancelReason,
	}
}

// [自证通过] internal/service/live_class_service.go
