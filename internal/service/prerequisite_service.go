package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

type prerequisiteRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Prerequisite, error)
	ListDetailByCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error)
	FindByID(ctx context.Context, id string) (*models.Prerequisite, error)
	Exists(ctx context.Context, courseID, requiredCourseID string) (bool, error)
	Create(ctx context.Context, prereq *models.Prerequisite) error
	Delete(ctx context.Context, id string) error
}

// CreatePrerequisiteRequest links a required course to a dependent course.
type CreatePrerequisiteRequest struct {
	RequiredCourseID string  `json:"required_course_id" validate:"required"`
	MinimumGrade     float64 `json:"minimum_grade" validate:"gte=0,lte=100"`
}

// PrerequisiteService manages prerequisite links on catalog courses.
type PrerequisiteService struct {
	repo      prerequisiteRepository
	courses   sectionCourseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPrerequisiteService creates a new prerequisite service instance.
func NewPrerequisiteService(repo prerequisiteRepository, courses sectionCourseReader, validate *validator.Validate, logger *zap.Logger) *PrerequisiteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrerequisiteService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// ListByCourse returns the prerequisites of a course with required-course info.
func (s *PrerequisiteService) ListByCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	prereqs, err := s.repo.ListDetailByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list prerequisites")
	}
	return prereqs, nil
}

// Create links a required course. A course may not require itself, and the
// (course, requiredCourse) pair is unique.
func (s *PrerequisiteService) Create(ctx context.Context, courseID string, req CreatePrerequisiteRequest) (*models.Prerequisite, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}

	if courseID == req.RequiredCourseID {
		return nil, appErrors.Clone(appErrors.ErrNotAcceptable, "a course cannot require itself")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.courses.FindByID(ctx, req.RequiredCourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "required course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load required course")
	}

	exists, err := s.repo.Exists(ctx, courseID, req.RequiredCourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate prerequisite")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "prerequisite already exists")
	}

	prereq := &models.Prerequisite{
		CourseID:         courseID,
		RequiredCourseID: req.RequiredCourseID,
		MinimumGrade:     req.MinimumGrade,
	}
	if err := s.repo.Create(ctx, prereq); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create prerequisite")
	}
	return prereq, nil
}

// Delete removes a prerequisite link from the owning course.
func (s *PrerequisiteService) Delete(ctx context.Context, courseID, id string) error {
	prereq, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite")
	}
	if prereq.CourseID != courseID {
		return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found for course")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete prerequisite")
	}
	return nil
}
