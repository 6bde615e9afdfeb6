package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

type mockPrereqRepo struct {
	prereqs map[string]models.Prerequisite
	deleted []string
}

func (m *mockPrereqRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Prerequisite, error) {
	var list []models.Prerequisite
	for _, p := range m.prereqs {
		if p.CourseID == courseID {
			list = append(list, p)
		}
	}
	return list, nil
}

func (m *mockPrereqRepo) ListDetailByCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	var list []models.PrerequisiteDetail
	for _, p := range m.prereqs {
		if p.CourseID == courseID {
			list = append(list, models.PrerequisiteDetail{Prerequisite: p})
		}
	}
	return list, nil
}

func (m *mockPrereqRepo) FindByID(ctx context.Context, id string) (*models.Prerequisite, error) {
	if p, ok := m.prereqs[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPrereqRepo) Exists(ctx context.Context, courseID, requiredCourseID string) (bool, error) {
	for _, p := range m.prereqs {
		if p.CourseID == courseID && p.RequiredCourseID == requiredCourseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPrereqRepo) Create(ctx context.Context, prereq *models.Prerequisite) error {
	if m.prereqs == nil {
		m.prereqs = make(map[string]models.Prerequisite)
	}
	if prereq.ID == "" {
		prereq.ID = "new-prereq"
	}
	m.prereqs[prereq.ID] = *prereq
	return nil
}

func (m *mockPrereqRepo) Delete(ctx context.Context, id string) error {
	delete(m.prereqs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func newPrereqFixture() (*PrerequisiteService, *mockPrereqRepo) {
	repo := &mockPrereqRepo{prereqs: map[string]models.Prerequisite{}}
	courses := &mockCourseReader{courses: map[string]models.Course{
		"c1": {ID: "c1", Code: "101"},
		"c2": {ID: "c2", Code: "201"},
	}}
	svc := NewPrerequisiteService(repo, courses, validator.New(), zap.NewNop())
	return svc, repo
}

func TestPrerequisiteServiceCreate(t *testing.T) {
	svc, repo := newPrereqFixture()

	prereq, err := svc.Create(context.Background(), "c2", CreatePrerequisiteRequest{RequiredCourseID: "c1", MinimumGrade: 70})
	require.NoError(t, err)
	assert.Equal(t, "c2", prereq.CourseID)
	assert.Equal(t, float64(70), prereq.MinimumGrade)
	assert.Len(t, repo.prereqs, 1)
}

func TestPrerequisiteServiceCreateSelfReference(t *testing.T) {
	svc, _ := newPrereqFixture()

	_, err := svc.Create(context.Background(), "c1", CreatePrerequisiteRequest{RequiredCourseID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAcceptable.Status, appErrors.FromError(err).Status)
}

func TestPrerequisiteServiceCreateDuplicatePair(t *testing.T) {
	svc, repo := newPrereqFixture()
	repo.prereqs["p1"] = models.Prerequisite{ID: "p1", CourseID: "c2", RequiredCourseID: "c1"}

	_, err := svc.Create(context.Background(), "c2", CreatePrerequisiteRequest{RequiredCourseID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestPrerequisiteServiceCreateUnknownRequiredCourse(t *testing.T) {
	svc, _ := newPrereqFixture()

	_, err := svc.Create(context.Background(), "c2", CreatePrerequisiteRequest{RequiredCourseID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestPrerequisiteServiceDeleteScopedToCourse(t *testing.T) {
	svc, repo := newPrereqFixture()
	repo.prereqs["p1"] = models.Prerequisite{ID: "p1", CourseID: "c2", RequiredCourseID: "c1"}

	err := svc.Delete(context.Background(), "c1", "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)

	require.NoError(t, svc.Delete(context.Background(), "c2", "p1"))
	assert.Contains(t, repo.deleted, "p1")
}
