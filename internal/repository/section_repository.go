package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-reg-api/internal/models"
)

// SectionRepository handles persistence of course sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionColumns = `id, course_id, term_id, instructor_id, room, capacity, schedule, enrolled_count, created_at, updated_at`

// List returns sections filtered by the provided criteria.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	base := `FROM course_sections cs
JOIN courses c ON c.id = cs.course_id
JOIN terms t ON t.id = cs.term_id
LEFT JOIN users u ON u.id = cs.instructor_id`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"course":     "c.department, c.code",
		"term_start": "t.start_date",
		"capacity":   "cs.capacity",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "t.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT cs.id, cs.course_id, cs.term_id, cs.instructor_id, cs.room, cs.capacity,
        cs.schedule, cs.enrolled_count, cs.created_at, cs.updated_at,
        c.department AS course_department, c.code AS course_code, c.title AS course_title,
        t.name AS term_name, t.start_date AS term_start_date, u.full_name AS instructor_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID returns a section by its ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.CourseSection, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_sections WHERE id = $1`, sectionColumns)
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID returns a section with course, term and instructor info.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	const query = `SELECT cs.id, cs.course_id, cs.term_id, cs.instructor_id, cs.room, cs.capacity,
        cs.schedule, cs.enrolled_count, cs.created_at, cs.updated_at,
        c.department AS course_department, c.code AS course_code, c.title AS course_title,
        t.name AS term_name, t.start_date AS term_start_date, u.full_name AS instructor_name
        FROM course_sections cs
        JOIN courses c ON c.id = cs.course_id
        JOIN terms t ON t.id = cs.term_id
        LEFT JOIN users u ON u.id = cs.instructor_id
        WHERE cs.id = $1`
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new section record.
func (r *SectionRepository) Create(ctx context.Context, section *models.CourseSection) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO course_sections (id, course_id, term_id, instructor_id, room, capacity, schedule, enrolled_count, created_at, updated_at)
        VALUES (:id, :course_id, :term_id, :instructor_id, :room, :capacity, :schedule, :enrolled_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update overwrites the mutable section fields.
func (r *SectionRepository) Update(ctx context.Context, section *models.CourseSection) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_sections SET course_id = :course_id, term_id = :term_id,
        instructor_id = :instructor_id, room = :room, capacity = :capacity, schedule = :schedule,
        updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes a section record.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM course_sections WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// RefreshEnrolledCount recomputes the cached roster count from the
// authoritative enrollment set and returns the updated section. The count is
// never incremented in place, so concurrent writers cannot drift it.
func (r *SectionRepository) RefreshEnrolledCount(ctx context.Context, id string) (*models.CourseSection, error) {
	query := fmt.Sprintf(`UPDATE course_sections
        SET enrolled_count = (SELECT COUNT(*) FROM enrollments WHERE course_section_id = $1), updated_at = NOW()
        WHERE id = $1
        RETURNING %s`, sectionColumns)
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, fmt.Errorf("refresh enrolled count: %w", err)
	}
	return &section, nil
}
