package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/SantaKoska/Artistry-Hub-sub000/internal/model"
)

// EnrollmentRepository 报名记录数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.ClassEnrollment) error
	Exists(ctx context.Context, classID, studentID string) (bool, error)
	ListByClass(ctx context.Context, classID string) ([]model.ClassEnrollment, error)
	Delete(ctx context.Context, classID, studentID string) error
	DeleteByClass(ctx context.Context, classID string) error
}

// enrollmentRepo EnrollmentRepository 的 GORM 实现
type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.ClassEnrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) Exists(ctx context.Context, classID, studentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ClassEnrollment{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *enrollmentRepo) ListByClass(ctx context.Context, classID string) ([]model.ClassEnrollment, error) {
	var enrollments []model.ClassEnrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("class_id = ?", classID).
		Order("created_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) Delete(ctx context.Context, classID, studentID string) error {
	return r.db.WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Delete(&model.ClassEnrollment{}).Error
}

func (r *enrollmentRepo) DeleteByClass(ctx context.Context, classID string) error {
	return r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Delete(&model.ClassEnrollment{}).Error
}
