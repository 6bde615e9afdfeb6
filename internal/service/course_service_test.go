package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
)

type mockCourseRepo struct {
	courses      map[string]models.Course
	sectionCount map[string]int
	listCalls    int
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	m.listCalls++
	var list []models.Course
	for _, c := range m.courses {
		list = append(list, c)
	}
	return list, len(list), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsByDepartmentAndCode(ctx context.Context, department, code, excludeID string) (bool, error) {
	for id, c := range m.courses {
		if c.Department == department && c.Code == code && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCourseRepo) ExistsByTitle(ctx context.Context, title, excludeID string) (bool, error) {
	for id, c := range m.courses {
		if c.Title == title && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) CountSections(ctx context.Context, id string) (int, error) {
	return m.sectionCount[id], nil
}

// memCacheRepo is an in-memory stand-in for the redis-backed cache.
type memCacheRepo struct {
	data map[string][]byte
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = raw
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	return nil
}

func newCourseFixture() (*CourseService, *mockCourseRepo, *memCacheRepo) {
	repo := &mockCourseRepo{courses: map[string]models.Course{}}
	mem := &memCacheRepo{data: map[string][]byte{}}
	cache := NewCacheService(mem, nil, time.Minute, zap.NewNop(), true)
	svc := NewCourseService(repo, cache, validator.New(), zap.NewNop())
	return svc, repo, mem
}

func TestCourseServiceCreate(t *testing.T) {
	svc, repo, _ := newCourseFixture()

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Department: "CS", Code: "101", Title: "Intro to Computing", Credits: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "CS", course.Department)
	assert.Len(t, repo.courses, 1)
}

func TestCourseServiceCreateDuplicateCode(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	repo.courses["c1"] = models.Course{ID: "c1", Department: "CS", Code: "101", Title: "Old"}

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Department: "CS", Code: "101", Title: "Intro to Computing", Credits: 3,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestCourseServiceCreateDuplicateTitle(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	repo.courses["c1"] = models.Course{ID: "c1", Department: "MA", Code: "201", Title: "Intro to Computing"}

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		Department: "CS", Code: "101", Title: "Intro to Computing", Credits: 3,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestCourseServiceListUsesCache(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	repo.courses["c1"] = models.Course{ID: "c1", Department: "CS", Code: "101", Title: "Intro"}

	_, _, err := svc.List(context.Background(), models.CourseFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	_, _, err = svc.List(context.Background(), models.CourseFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestCourseServiceMutationInvalidatesCache(t *testing.T) {
	svc, repo, mem := newCourseFixture()
	repo.courses["c1"] = models.Course{ID: "c1", Department: "CS", Code: "101", Title: "Intro"}

	_, _, err := svc.List(context.Background(), models.CourseFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.NotEmpty(t, mem.data)

	_, err = svc.Create(context.Background(), CreateCourseRequest{
		Department: "CS", Code: "102", Title: "Data Structures", Credits: 4,
	})
	require.NoError(t, err)
	assert.Empty(t, mem.data)
}

func TestCourseServiceDeleteBlockedBySections(t *testing.T) {
	svc, repo, _ := newCourseFixture()
	repo.courses["c1"] = models.Course{ID: "c1", Department: "CS", Code: "101", Title: "Intro"}
	repo.sectionCount = map[string]int{"c1": 2}

	err := svc.Delete(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAcceptable.Status, appErrors.FromError(err).Status)
}

func TestCourseServiceGetNotFound(t *testing.T) {
	svc, _, _ := newCourseFixture()

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}
