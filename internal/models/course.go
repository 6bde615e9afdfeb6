package models

import "time"

// Course is a catalog entry identified by its department and code.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Department  string    `db:"department" json:"department"`
	Code        string    `db:"code" json:"code"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Credits     int       `db:"credits" json:"credits"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering criteria for catalog listings.
type CourseFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Prerequisite requires completion of one course, with a minimum grade,
// before enrolling in another.
type Prerequisite struct {
	ID               string    `db:"id" json:"id"`
	CourseID         string    `db:"course_id" json:"course_id"`
	RequiredCourseID string    `db:"required_course_id" json:"required_course_id"`
	MinimumGrade     float64   `db:"minimum_grade" json:"minimum_grade"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// PrerequisiteDetail enriches Prerequisite with the required course identity.
type PrerequisiteDetail struct {
	Prerequisite
	RequiredDepartment string `db:"required_department" json:"required_department"`
	RequiredCode       string `db:"required_code" json:"required_code"`
	RequiredTitle      string `db:"required_title" json:"required_title"`
}
