package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseSection, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, section *models.CourseSection) error
	Update(ctx context.Context, section *models.CourseSection) error
	Delete(ctx context.Context, id string) error
	RefreshEnrolledCount(ctx context.Context, id string) (*models.CourseSection, error)
}

type sectionCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type sectionRosterCounter interface {
	CountBySection(ctx context.Context, sectionID string) (int, error)
}

// CreateSectionRequest describes payload for creating sections.
type CreateSectionRequest struct {
	CourseID     string  `json:"course_id" validate:"required"`
	TermID       string  `json:"term_id" validate:"required"`
	InstructorID *string `json:"instructor_id"`
	Room         string  `json:"room"`
	Capacity     int     `json:"capacity" validate:"gte=0"`
	Schedule     string  `json:"schedule"`
}

// UpdateSectionRequest updates mutable fields on a section.
type UpdateSectionRequest struct {
	InstructorID *string `json:"instructor_id"`
	Room         string  `json:"room"`
	Capacity     int     `json:"capacity" validate:"gte=0"`
	Schedule     string  `json:"schedule"`
}

// SectionService orchestrates section workflows.
type SectionService struct {
	repo        sectionRepository
	courses     sectionCourseReader
	terms       termReader
	users       userReader
	enrollments sectionRosterCounter
	gate        *SectionGate
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSectionService creates a new section service instance. The gate must be
// the same instance the enrollment service uses so capacity changes and
// admissions serialize against each other.
func NewSectionService(repo sectionRepository, courses sectionCourseReader, terms termReader, users userReader, enrollments sectionRosterCounter, gate *SectionGate, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if gate == nil {
		gate = NewSectionGate()
	}
	return &SectionService{repo: repo, courses: courses, terms: terms, users: users, enrollments: enrollments, gate: gate, validator: validate, logger: logger}
}

// List returns paginated sections.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return sections, pagination, nil
}

// Get returns a section with contextual detail.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return detail, nil
}

// Create adds a new section after validating the course, term and
// instructor references.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if err := s.validateInstructor(ctx, req.InstructorID); err != nil {
		return nil, err
	}

	section := &models.CourseSection{
		CourseID:     req.CourseID,
		TermID:       req.TermID,
		InstructorID: req.InstructorID,
		Room:         req.Room,
		Capacity:     req.Capacity,
		Schedule:     req.Schedule,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return s.Get(ctx, section.ID)
}

// Update overwrites section fields. Capacity may not drop below the current
// roster size; the roster count and the write run under the section's gate
// so a shrink cannot race an in-flight admission.
func (s *SectionService) Update(ctx context.Context, id string, req UpdateSectionRequest) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	if err := s.validateInstructor(ctx, req.InstructorID); err != nil {
		return nil, err
	}

	s.gate.Lock(id)
	defer s.gate.Unlock(id)

	enrolled, err := s.enrollments.CountBySection(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster")
	}
	if req.Capacity < enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotAcceptable, "capacity below current roster size")
	}

	section.InstructorID = req.InstructorID
	section.Room = req.Room
	section.Capacity = req.Capacity
	section.Schedule = req.Schedule
	if err := s.repo.Update(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return s.Get(ctx, id)
}

// Delete removes a section with an empty roster.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	enrolled, err := s.enrollments.CountBySection(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster")
	}
	if enrolled > 0 {
		return appErrors.Clone(appErrors.ErrNotAcceptable, "section has enrolled students")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	return nil
}

func (s *SectionService) validateInstructor(ctx context.Context, instructorID *string) error {
	if instructorID == nil || *instructorID == "" {
		return nil
	}
	instructor, err := s.users.FindByID(ctx, *instructorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Role != models.RoleInstructor && instructor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrNotAcceptable, "instructor must hold the INSTRUCTOR or ADMIN role")
	}
	return nil
}
