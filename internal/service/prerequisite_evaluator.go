package service

import (
	"time"

	"github.com/noah-isme/course-reg-api/internal/models"
)

// PrerequisiteEvaluator decides whether a student's enrollment history
// satisfies a course's prerequisite list.
type PrerequisiteEvaluator struct {
	now func() time.Time
}

// NewPrerequisiteEvaluator constructs an evaluator. A nil clock defaults to
// time.Now.
func NewPrerequisiteEvaluator(now func() time.Time) *PrerequisiteEvaluator {
	if now == nil {
		now = time.Now
	}
	return &PrerequisiteEvaluator{now: now}
}

// Satisfied reports whether every prerequisite is met by the history. A
// prerequisite is met only by an enrollment in the required course whose term
// has already ended and whose recorded grade reaches the minimum. Evaluation
// short-circuits on the first unmet prerequisite; the result carries no
// per-prerequisite detail.
func (e *PrerequisiteEvaluator) Satisfied(prereqs []models.Prerequisite, history []models.EnrollmentHistoryEntry) bool {
	now := e.now().UTC()
	for _, p := range prereqs {
		if !e.met(p, history, now) {
			return false
		}
	}
	return true
}

func (e *PrerequisiteEvaluator) met(p models.Prerequisite, history []models.EnrollmentHistoryEntry, now time.Time) bool {
	for _, entry := range history {
		if entry.CourseID != p.RequiredCourseID {
			continue
		}
		if !now.After(entry.TermEndDate) {
			// Required course still in progress.
			continue
		}
		if entry.Grade < p.MinimumGrade {
			continue
		}
		return true
	}
	return false
}
