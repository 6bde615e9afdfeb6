package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/course-reg-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. The enrollments table carries a unique index over
// (student_id, course_section_id); the losing insert of a concurrent pair
// surfaces here and is reported as a conflict.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.course_section_id, e.grade, e.status, e.created_at, e.updated_at,
        u.full_name AS student_name, c.code AS course_code, c.title AS course_title,
        cs.room AS section_room, cs.schedule AS section_schedule,
        t.name AS term_name, t.start_date AS term_start_date
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        JOIN course_sections cs ON cs.id = e.course_section_id
        JOIN courses c ON c.id = cs.course_id
        JOIN terms t ON t.id = cs.term_id`

// List returns enrollments filtered by the provided criteria, ordered by the
// associated term's start date, most recent first.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN users u ON u.id = e.student_id
JOIN course_sections cs ON cs.id = e.course_section_id
JOIN courses c ON c.id = cs.course_id
JOIN terms t ON t.id = cs.term_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseSectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_section_id = $%d", len(args)+1))
		args = append(args, filter.CourseSectionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_section_id, e.grade, e.status, e.created_at, e.updated_at,
        u.full_name AS student_name, c.code AS course_code, c.title AS course_title,
        cs.room AS section_room, cs.schedule AS section_schedule,
        t.name AS term_name, t.start_date AS term_start_date
        %s ORDER BY t.start_date DESC, e.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_section_id, grade, status, created_at, updated_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Exists checks whether the student already holds an enrollment in the section.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_section_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// CountBySection returns the live roster size for a section.
func (r *EnrollmentRepository) CountBySection(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_section_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID); err != nil {
		return 0, fmt.Errorf("count section enrollments: %w", err)
	}
	return count, nil
}

// Create persists a new enrollment record. Unique-index violations on
// (student_id, course_section_id) propagate for the caller to classify.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusNotStarted
	}
	const query = `INSERT INTO enrollments (id, student_id, course_section_id, grade, status, created_at, updated_at)
        VALUES (:id, :student_id, :course_section_id, :grade, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateGradeStatus overwrites the grade and status fields.
func (r *EnrollmentRepository) UpdateGradeStatus(ctx context.Context, id string, grade float64, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET grade = $2, status = $3, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, grade, status); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment record.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// ListHistoryByStudent returns the student's full enrollment history joined
// with each section's course and term, as consumed by the prerequisite
// evaluator.
func (r *EnrollmentRepository) ListHistoryByStudent(ctx context.Context, studentID string) ([]models.EnrollmentHistoryEntry, error) {
	const query = `SELECT e.id AS enrollment_id, cs.course_id, e.grade, t.end_date AS term_end_date
        FROM enrollments e
        JOIN course_sections cs ON cs.id = e.course_section_id
        JOIN terms t ON t.id = cs.term_id
        WHERE e.student_id = $1`
	var history []models.EnrollmentHistoryEntry
	if err := r.db.SelectContext(ctx, &history, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollment history: %w", err)
	}
	return history, nil
}

// ListRosterBySection returns the roster rows used for exports.
func (r *EnrollmentRepository) ListRosterBySection(ctx context.Context, sectionID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.id AS enrollment_id, e.student_id, u.full_name AS student_name,
        u.email AS student_email, e.grade, e.status
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.course_section_id = $1
        ORDER BY u.full_name`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section roster: %w", err)
	}
	return roster, nil
}

// ListStartEligible returns ids of NOT_STARTED enrollments whose section's
// term has begun by now.
func (r *EnrollmentRepository) ListStartEligible(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	const query = `SELECT e.id FROM enrollments e
        JOIN course_sections cs ON cs.id = e.course_section_id
        JOIN terms t ON t.id = cs.term_id
        WHERE e.status = $1 AND t.start_date <= $2
        LIMIT $3`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.EnrollmentStatusNotStarted, now, limit); err != nil {
		return nil, fmt.Errorf("list start-eligible enrollments: %w", err)
	}
	return ids, nil
}

// MarkStarted bulk-transitions the given enrollments to STARTED, returning
// the number of rows affected.
func (r *EnrollmentRepository) MarkStarted(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE enrollments SET status = $1, updated_at = NOW()
        WHERE id = ANY($2) AND status = $3`
	res, err := r.db.ExecContext(ctx, query, models.EnrollmentStatusStarted, pq.Array(ids), models.EnrollmentStatusNotStarted)
	if err != nil {
		return 0, fmt.Errorf("mark enrollments started: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark enrollments started: %w", err)
	}
	return int(affected), nil
}
