package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-reg-api/internal/models"
)

func TestPrerequisiteEvaluatorSatisfied(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	eval := NewPrerequisiteEvaluator(func() time.Time { return now })

	prereqs := []models.Prerequisite{
		{ID: "p1", CourseID: "c2", RequiredCourseID: "c1", MinimumGrade: 70},
	}

	t.Run("no prerequisites always passes", func(t *testing.T) {
		assert.True(t, eval.Satisfied(nil, nil))
	})

	t.Run("completed with passing grade", func(t *testing.T) {
		history := []models.EnrollmentHistoryEntry{
			{CourseID: "c1", Grade: 85, TermEndDate: now.AddDate(0, -3, 0)},
		}
		assert.True(t, eval.Satisfied(prereqs, history))
	})

	t.Run("grade below minimum fails", func(t *testing.T) {
		history := []models.EnrollmentHistoryEntry{
			{CourseID: "c1", Grade: 65, TermEndDate: now.AddDate(0, -3, 0)},
		}
		assert.False(t, eval.Satisfied(prereqs, history))
	})

	t.Run("grade at exact minimum passes", func(t *testing.T) {
		history := []models.EnrollmentHistoryEntry{
			{CourseID: "c1", Grade: 70, TermEndDate: now.AddDate(0, -3, 0)},
		}
		assert.True(t, eval.Satisfied(prereqs, history))
	})

	t.Run("term still running fails", func(t *testing.T) {
		history := []models.EnrollmentHistoryEntry{
			{CourseID: "c1", Grade: 95, TermEndDate: now.AddDate(0, 1, 0)},
		}
		assert.False(t, eval.Satisfied(prereqs, history))
	})

	t.Run("retake counts when any attempt qualifies", func(t *testing.T) {
		history := []models.EnrollmentHistoryEntry{
			{CourseID: "c1", Grade: 55, TermEndDate: now.AddDate(-1, 0, 0)},
			{CourseID: "c1", Grade: 78, TermEndDate: now.AddDate(0, -4, 0)},
		}
		assert.True(t, eval.Satisfied(prereqs, history))
	})

	t.Run("unrelated course never qualifies", func(t *testing.T) {
		history := []models.EnrollmentHistoryEntry{
			{CourseID: "c9", Grade: 99, TermEndDate: now.AddDate(0, -3, 0)},
		}
		assert.False(t, eval.Satisfied(prereqs, history))
	})

	t.Run("all prerequisites must be met", func(t *testing.T) {
		two := append([]models.Prerequisite{}, prereqs...)
		two = append(two, models.Prerequisite{ID: "p2", CourseID: "c2", RequiredCourseID: "c0", MinimumGrade: 60})
		history := []models.EnrollmentHistoryEntry{
			{CourseID: "c1", Grade: 85, TermEndDate: now.AddDate(0, -3, 0)},
		}
		assert.False(t, eval.Satisfied(two, history))

		history = append(history, models.EnrollmentHistoryEntry{CourseID: "c0", Grade: 60, TermEndDate: now.AddDate(0, -6, 0)})
		assert.True(t, eval.Satisfied(two, history))
	})
}
