package models

import "time"

// CourseSection is one scheduled offering of a course within a term.
// EnrolledCount is a cached derivation of the roster size; the enrollment
// set remains the source of truth and the count is recomputed after every
// roster mutation.
type CourseSection struct {
	ID            string    `db:"id" json:"id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	TermID        string    `db:"term_id" json:"term_id"`
	InstructorID  *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	Room          string    `db:"room" json:"room"`
	Capacity      int       `db:"capacity" json:"capacity"`
	Schedule      string    `db:"schedule" json:"schedule"`
	EnrolledCount int       `db:"enrolled_count" json:"enrolled_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail enriches CourseSection with course and term info.
type SectionDetail struct {
	CourseSection
	CourseDepartment string    `db:"course_department" json:"course_department"`
	CourseCode       string    `db:"course_code" json:"course_code"`
	CourseTitle      string    `db:"course_title" json:"course_title"`
	TermName         string    `db:"term_name" json:"term_name"`
	TermStartDate    time.Time `db:"term_start_date" json:"term_start_date"`
	InstructorName   *string   `db:"instructor_name" json:"instructor_name,omitempty"`
}

// SectionFilter provides filters for listing sections.
type SectionFilter struct {
	CourseID     string
	TermID       string
	InstructorID string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
