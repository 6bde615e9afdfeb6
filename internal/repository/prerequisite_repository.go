package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-reg-api/internal/models"
)

// PrerequisiteRepository handles persistence of prerequisite links.
type PrerequisiteRepository struct {
	db *sqlx.DB
}

// NewPrerequisiteRepository constructs the repository.
func NewPrerequisiteRepository(db *sqlx.DB) *PrerequisiteRepository {
	return &PrerequisiteRepository{db: db}
}

// ListByCourse returns the prerequisites owned by a course.
func (r *PrerequisiteRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Prerequisite, error) {
	const query = `SELECT id, course_id, required_course_id, minimum_grade, created_at
        FROM prerequisites WHERE course_id = $1 ORDER BY created_at`
	var prereqs []models.Prerequisite
	if err := r.db.SelectContext(ctx, &prereqs, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prereqs, nil
}

// ListDetailByCourse returns prerequisites joined with the required course.
func (r *PrerequisiteRepository) ListDetailByCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	const query = `SELECT p.id, p.course_id, p.required_course_id, p.minimum_grade, p.created_at,
        c.department AS required_department, c.code AS required_code, c.title AS required_title
        FROM prerequisites p
        JOIN courses c ON c.id = p.required_course_id
        WHERE p.course_id = $1 ORDER BY c.department, c.code`
	var prereqs []models.PrerequisiteDetail
	if err := r.db.SelectContext(ctx, &prereqs, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisite details: %w", err)
	}
	return prereqs, nil
}

// FindByID returns a prerequisite by its ID.
func (r *PrerequisiteRepository) FindByID(ctx context.Context, id string) (*models.Prerequisite, error) {
	const query = `SELECT id, course_id, required_course_id, minimum_grade, created_at
        FROM prerequisites WHERE id = $1`
	var prereq models.Prerequisite
	if err := r.db.GetContext(ctx, &prereq, query, id); err != nil {
		return nil, err
	}
	return &prereq, nil
}

// Exists checks whether a (course, requiredCourse) link already exists.
func (r *PrerequisiteRepository) Exists(ctx context.Context, courseID, requiredCourseID string) (bool, error) {
	const query = `SELECT 1 FROM prerequisites WHERE course_id = $1 AND required_course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, requiredCourseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check prerequisite: %w", err)
	}
	return true, nil
}

// Create persists a new prerequisite link.
func (r *PrerequisiteRepository) Create(ctx context.Context, prereq *models.Prerequisite) error {
	if prereq.ID == "" {
		prereq.ID = uuid.NewString()
	}
	if prereq.CreatedAt.IsZero() {
		prereq.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO prerequisites (id, course_id, required_course_id, minimum_grade, created_at)
        VALUES (:id, :course_id, :required_course_id, :minimum_grade, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, prereq); err != nil {
		return fmt.Errorf("create prerequisite: %w", err)
	}
	return nil
}

// Delete removes a prerequisite link.
func (r *PrerequisiteRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM prerequisites WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete prerequisite: %w", err)
	}
	return nil
}
