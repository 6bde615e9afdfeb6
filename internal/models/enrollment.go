package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Lifecycle: NOT_STARTED -> STARTED -> {COMPLETED | FAILED | DROPPED}.
// COMPLETED and FAILED are terminal; DROPPED is also reachable by deleting
// an enrollment before its term ends.
const (
	EnrollmentStatusNotStarted EnrollmentStatus = "NOT_STARTED"
	EnrollmentStatusStarted    EnrollmentStatus = "STARTED"
	EnrollmentStatusCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentStatusDropped    EnrollmentStatus = "DROPPED"
	EnrollmentStatusFailed     EnrollmentStatus = "FAILED"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusNotStarted, EnrollmentStatusStarted,
		EnrollmentStatusCompleted, EnrollmentStatusDropped, EnrollmentStatusFailed:
		return true
	}
	return false
}

// Enrollment captures a student's registration to a course section.
type Enrollment struct {
	ID              string           `db:"id" json:"id"`
	StudentID       string           `db:"student_id" json:"student_id"`
	CourseSectionID string           `db:"course_section_id" json:"course_section_id"`
	Grade           float64          `db:"grade" json:"grade"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with section, course and term info.
type EnrollmentDetail struct {
	Enrollment
	StudentName     string    `db:"student_name" json:"student_name"`
	CourseCode      string    `db:"course_code" json:"course_code"`
	CourseTitle     string    `db:"course_title" json:"course_title"`
	SectionRoom     string    `db:"section_room" json:"section_room"`
	SectionSchedule string    `db:"section_schedule" json:"section_schedule"`
	TermName        string    `db:"term_name" json:"term_name"`
	TermStartDate   time.Time `db:"term_start_date" json:"term_start_date"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID       string
	CourseSectionID string
	Status          EnrollmentStatus
	Page            int
	PageSize        int
}

// EnrollmentHistoryEntry is one row of a student's enrollment history joined
// with its section's course and term, as consumed by the prerequisite
// evaluator.
type EnrollmentHistoryEntry struct {
	EnrollmentID string    `db:"enrollment_id"`
	CourseID     string    `db:"course_id"`
	Grade        float64   `db:"grade"`
	TermEndDate  time.Time `db:"term_end_date"`
}

// RosterEntry is one student row on a section roster export.
type RosterEntry struct {
	EnrollmentID string           `db:"enrollment_id"`
	StudentID    string           `db:"student_id"`
	StudentName  string           `db:"student_name"`
	StudentEmail string           `db:"student_email"`
	Grade        float64          `db:"grade"`
	Status       EnrollmentStatus `db:"status"`
}
