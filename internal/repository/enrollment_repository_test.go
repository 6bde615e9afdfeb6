package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-reg-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create enrollment: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestEnrollmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_section_id = $2 LIMIT 1")).
		WithArgs("stu-1", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "stu-1", "sec-1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND course_section_id = $2 LIMIT 1")).
		WithArgs("stu-2", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.Exists(context.Background(), "stu-2", "sec-1")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountBySection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE course_section_id = $1")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountBySection(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "stu-1", "sec-1", float64(0), models.EnrollmentStatusNotStarted, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{StudentID: "stu-1", CourseSectionID: "sec-1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusNotStarted, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Enrollment{StudentID: "stu-1", CourseSectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateGradeStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET grade = $2, status = $3, updated_at = NOW() WHERE id = $1")).
		WithArgs("enr-1", 88.5, models.EnrollmentStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGradeStatus(context.Background(), "enr-1", 88.5, models.EnrollmentStatusCompleted))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id = $1")).
		WithArgs("enr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "enr-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListOrdersByTermStartDesc(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "course_section_id", "grade", "status", "created_at", "updated_at",
		"student_name", "course_code", "course_title", "section_room", "section_schedule",
		"term_name", "term_start_date",
	}).
		AddRow("e2", "stu-1", "sec-2", nil, "IN_PROGRESS", now, now, "Ada Lovelace", "CS201", "Algorithms", "B204", "MWF 10:00", "Fall 2026", now).
		AddRow("e1", "stu-1", "sec-1", 88.0, "COMPLETED", now, now, "Ada Lovelace", "CS101", "Intro", "A101", "TTh 09:00", "Spring 2026", now.AddDate(0, -6, 0))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY t.start_date DESC, e.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, enrollments, 2)
	assert.Equal(t, "e2", enrollments[0].ID)
	assert.Equal(t, "e1", enrollments[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListHistoryByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	ended := time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"enrollment_id", "course_id", "grade", "term_end_date"}).
		AddRow("enr-1", "crs-1", 82.0, ended)
	mock.ExpectQuery("SELECT e.id AS enrollment_id, cs.course_id, e.grade, t.end_date AS term_end_date").
		WithArgs("stu-1").
		WillReturnRows(rows)

	history, err := repo.ListHistoryByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "crs-1", history[0].CourseID)
	assert.Equal(t, 82.0, history[0].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListStartEligible(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id"}).AddRow("enr-1").AddRow("enr-2")
	mock.ExpectQuery("SELECT e.id FROM enrollments e").
		WithArgs(models.EnrollmentStatusNotStarted, now, 100).
		WillReturnRows(rows)

	ids, err := repo.ListStartEligible(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"enr-1", "enr-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkStarted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("UPDATE enrollments SET status = \\$1").
		WithArgs(models.EnrollmentStatusStarted, pq.Array([]string{"enr-1", "enr-2"}), models.EnrollmentStatusNotStarted).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.MarkStarted(context.Background(), []string{"enr-1", "enr-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkStartedEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	n, err := repo.MarkStarted(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
