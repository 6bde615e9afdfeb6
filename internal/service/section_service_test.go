package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

type mockSectionRepo struct {
	sections map[string]models.CourseSection
	deleted  []string
}

func (m *mockSectionRepo) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	var list []models.SectionDetail
	for _, s := range m.sections {
		list = append(list, models.SectionDetail{CourseSection: s})
	}
	return list, len(list), nil
}

func (m *mockSectionRepo) FindByID(ctx context.Context, id string) (*models.CourseSection, error) {
	if s, ok := m.sections[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSectionRepo) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	if s, ok := m.sections[id]; ok {
		return &models.SectionDetail{CourseSection: s}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSectionRepo) Create(ctx context.Context, section *models.CourseSection) error {
	if m.sections == nil {
		m.sections = make(map[string]models.CourseSection)
	}
	if section.ID == "" {
		section.ID = "new-section"
	}
	m.sections[section.ID] = *section
	return nil
}

func (m *mockSectionRepo) Update(ctx context.Context, section *models.CourseSection) error {
	m.sections[section.ID] = *section
	return nil
}

func (m *mockSectionRepo) Delete(ctx context.Context, id string) error {
	delete(m.sections, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSectionRepo) RefreshEnrolledCount(ctx context.Context, id string) (*models.CourseSection, error) {
	if s, ok := m.sections[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader struct {
	courses map[string]models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockRosterCounter struct {
	counts map[string]int
}

func (m *mockRosterCounter) CountBySection(ctx context.Context, sectionID string) (int, error) {
	return m.counts[sectionID], nil
}

func newSectionFixture() (*SectionService, *mockSectionRepo, *mockRosterCounter) {
	repo := &mockSectionRepo{sections: map[string]models.CourseSection{}}
	courses := &mockCourseReader{courses: map[string]models.Course{"c1": {ID: "c1", Code: "101"}}}
	terms := &mockTermReader{terms: map[string]models.Term{"t1": {ID: "t1"}}}
	users := &mockUserReader{users: map[string]models.User{
		"i1": {ID: "i1", Role: models.RoleInstructor},
		"s1": {ID: "s1", Role: models.RoleStudent},
	}}
	counter := &mockRosterCounter{counts: map[string]int{}}
	svc := NewSectionService(repo, courses, terms, users, counter, NewSectionGate(), validator.New(), zap.NewNop())
	return svc, repo, counter
}

func TestSectionServiceCreate(t *testing.T) {
	svc, repo, _ := newSectionFixture()
	instructor := "i1"

	detail, err := svc.Create(context.Background(), CreateSectionRequest{
		CourseID:     "c1",
		TermID:       "t1",
		InstructorID: &instructor,
		Room:         "B204",
		Capacity:     30,
	})
	require.NoError(t, err)
	assert.Equal(t, 30, detail.Capacity)
	assert.Len(t, repo.sections, 1)
}

func TestSectionServiceCreateUnknownCourse(t *testing.T) {
	svc, _, _ := newSectionFixture()

	_, err := svc.Create(context.Background(), CreateSectionRequest{CourseID: "missing", TermID: "t1", Capacity: 10})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestSectionServiceCreateInstructorRoleRejected(t *testing.T) {
	svc, _, _ := newSectionFixture()
	student := "s1"

	_, err := svc.Create(context.Background(), CreateSectionRequest{CourseID: "c1", TermID: "t1", InstructorID: &student, Capacity: 10})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAcceptable.Status, appErrors.FromError(err).Status)
}

func TestSectionServiceUpdateCapacityBelowRoster(t *testing.T) {
	svc, repo, counter := newSectionFixture()
	repo.sections["sec1"] = models.CourseSection{ID: "sec1", CourseID: "c1", TermID: "t1", Capacity: 30}
	counter.counts["sec1"] = 12

	_, err := svc.Update(context.Background(), "sec1", UpdateSectionRequest{Capacity: 10})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAcceptable.Status, appErrors.FromError(err).Status)

	detail, err := svc.Update(context.Background(), "sec1", UpdateSectionRequest{Capacity: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, detail.Capacity)
}

func TestSectionServiceUpdateWaitsForSectionGate(t *testing.T) {
	svc, repo, counter := newSectionFixture()
	repo.sections["sec1"] = models.CourseSection{ID: "sec1", CourseID: "c1", TermID: "t1", Capacity: 30}
	counter.counts["sec1"] = 5

	svc.gate.Lock("sec1")

	done := make(chan error, 1)
	go func() {
		_, err := svc.Update(context.Background(), "sec1", UpdateSectionRequest{Capacity: 10})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("capacity update completed while the section gate was held")
	case <-time.After(50 * time.Millisecond):
	}

	svc.gate.Unlock("sec1")
	require.NoError(t, <-done)
	assert.Equal(t, 10, repo.sections["sec1"].Capacity)
}

func TestSectionServiceDeleteBlockedByRoster(t *testing.T) {
	svc, repo, counter := newSectionFixture()
	repo.sections["sec1"] = models.CourseSection{ID: "sec1", CourseID: "c1", TermID: "t1", Capacity: 30}
	counter.counts["sec1"] = 1

	err := svc.Delete(context.Background(), "sec1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAcceptable.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.deleted)
}

func TestSectionServiceDelete(t *testing.T) {
	svc, repo, _ := newSectionFixture()
	repo.sections["sec1"] = models.CourseSection{ID: "sec1", CourseID: "c1", TermID: "t1"}

	require.NoError(t, svc.Delete(context.Background(), "sec1"))
	assert.Contains(t, repo.deleted, "sec1")
}
