package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/models"
	"github.com/noah-isme/course-reg-api/internal/repository"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Exists(ctx context.Context, studentID, sectionID string) (bool, error)
	CountBySection(ctx context.Context, sectionID string) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateGradeStatus(ctx context.Context, id string, grade float64, status models.EnrollmentStatus) error
	Delete(ctx context.Context, id string) error
	ListHistoryByStudent(ctx context.Context, studentID string) ([]models.EnrollmentHistoryEntry, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseSection, error)
	RefreshEnrolledCount(ctx context.Context, id string) (*models.CourseSection, error)
}

type prerequisiteReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Prerequisite, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

// CreateEnrollmentRequest describes enrollment creation. StudentID is
// optional; when empty the acting user enrolls themselves.
type CreateEnrollmentRequest struct {
	StudentID       string `json:"student_id"`
	CourseSectionID string `json:"course_section_id" validate:"required"`
}

// UpdateEnrollmentRequest overwrites the grade and status fields.
type UpdateEnrollmentRequest struct {
	Grade  float64                 `json:"grade" validate:"gte=0,lte=100"`
	Status models.EnrollmentStatus `json:"status" validate:"required"`
}

// EnrollmentService orchestrates the enrollment lifecycle: validated
// creation against capacity, registration-window and prerequisite rules,
// instructor grade updates, and guarded deletion.
type EnrollmentService struct {
	repo      enrollmentRepository
	sections  sectionReader
	prereqs   prerequisiteReader
	users     userReader
	terms     termReader
	evaluator *PrerequisiteEvaluator
	gate      *SectionGate
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, sections sectionReader, prereqs prerequisiteReader, users userReader, terms termReader, evaluator *PrerequisiteEvaluator, gate *SectionGate, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if evaluator == nil {
		evaluator = NewPrerequisiteEvaluator(nil)
	}
	if gate == nil {
		gate = NewSectionGate()
	}
	return &EnrollmentService{
		repo:      repo,
		sections:  sections,
		prereqs:   prereqs,
		users:     users,
		terms:     terms,
		evaluator: evaluator,
		gate:      gate,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns enrollments visible to the actor. Students only ever see
// their own; instructors and admins may filter freely.
func (s *EnrollmentService) List(ctx context.Context, actor models.Actor, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if actor.Role == models.RoleStudent {
		filter.StudentID = actor.UserID
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, pagination, nil
}

// Get returns a single enrollment, restricted to its owner for students.
func (s *EnrollmentService) Get(ctx context.Context, actor models.Actor, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if actor.Role == models.RoleStudent && detail.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your enrollment")
	}
	return detail, nil
}

// Create registers a student into a section. Preconditions are checked in
// order with the first failure winning: actor authorization, target student
// role, section existence, duplicate enrollment, registration window,
// capacity, prerequisites. The capacity check and insert run under the
// section's gate so concurrent creates cannot jointly overshoot capacity.
func (s *EnrollmentService) Create(ctx context.Context, actor models.Actor, req CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	studentID := req.StudentID
	if studentID == "" {
		studentID = actor.UserID
	}
	if studentID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot enroll another student")
	}

	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "target user is not a student")
	}

	section, err := s.sections.FindByID(ctx, req.CourseSectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	s.gate.Lock(section.ID)
	defer s.gate.Unlock(section.ID)

	exists, err := s.repo.Exists(ctx, studentID, section.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this section")
	}

	term, err := s.terms.FindByID(ctx, section.TermID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if !term.IsRegistrationOpen(s.now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrNotAcceptable, "registration window is closed")
	}

	// Capacity is checked against the live roster count, not the cached
	// enrolled_count, so a stale cache can never admit an extra student.
	count, err := s.repo.CountBySection(ctx, section.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster")
	}
	if count >= section.Capacity {
		return nil, appErrors.Clone(appErrors.ErrNotAcceptable, "section is at capacity")
	}

	prereqs, err := s.prereqs.ListByCourse(ctx, section.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	if len(prereqs) > 0 {
		history, err := s.repo.ListHistoryByStudent(ctx, studentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
		}
		if !s.evaluator.Satisfied(prereqs, history) {
			return nil, appErrors.Clone(appErrors.ErrNotAcceptable, "prerequisites not met")
		}
	}

	enrollment := &models.Enrollment{
		StudentID:       studentID,
		CourseSectionID: section.ID,
		Grade:           0,
		Status:          models.EnrollmentStatusNotStarted,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this section")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	if _, err := s.sections.RefreshEnrolledCount(ctx, section.ID); err != nil {
		s.logger.Warn("failed to refresh roster count", zap.String("section_id", section.ID), zap.Error(err))
	}

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", studentID),
		zap.String("section_id", section.ID))
	return detail, nil
}

// Update overwrites grade and status. Only the section's instructor of
// record or an admin may do so; no transition table is enforced beyond the
// authorization check.
func (s *EnrollmentService) Update(ctx context.Context, actor models.Actor, id string, req UpdateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	section, err := s.sections.FindByID(ctx, enrollment.CourseSectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if !s.isInstructorOfRecord(actor, section) && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "only the section instructor or an admin may grade")
	}

	if err := s.repo.UpdateGradeStatus(ctx, id, req.Grade, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Delete drops an enrollment before its term ends. The roster count is
// refreshed after the row is removed so the departing student is no longer
// counted.
func (s *EnrollmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	section, err := s.sections.FindByID(ctx, enrollment.CourseSectionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	allowed := actor.UserID == enrollment.StudentID || s.isInstructorOfRecord(actor, section) || actor.IsAdmin()
	if !allowed {
		return appErrors.Clone(appErrors.ErrUnauthorized, "not allowed to drop this enrollment")
	}

	term, err := s.terms.FindByID(ctx, section.TermID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if term.HasEnded(s.now().UTC()) {
		return appErrors.Clone(appErrors.ErrNotAcceptable, "term has already ended")
	}
	if enrollment.Status == models.EnrollmentStatusCompleted {
		return appErrors.Clone(appErrors.ErrNotAcceptable, "enrollment already completed")
	}

	s.gate.Lock(section.ID)
	defer s.gate.Unlock(section.ID)

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	if _, err := s.sections.RefreshEnrolledCount(ctx, section.ID); err != nil {
		s.logger.Warn("failed to refresh roster count", zap.String("section_id", section.ID), zap.Error(err))
	}

	s.logger.Info("enrollment dropped",
		zap.String("enrollment_id", id),
		zap.String("section_id", section.ID))
	return nil
}

func (s *EnrollmentService) isInstructorOfRecord(actor models.Actor, section *models.CourseSection) bool {
	return section.InstructorID != nil && *section.InstructorID == actor.UserID
}
