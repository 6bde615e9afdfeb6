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

type mockTermRepo struct {
	terms        map[string]models.Term
	sectionCount map[string]int
	deleted      []string
}

func (m *mockTermRepo) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	var list []models.Term
	for _, t := range m.terms {
		list = append(list, t)
	}
	return list, len(list), nil
}

func (m *mockTermRepo) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if t, ok := m.terms[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTermRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for id, t := range m.terms {
		if t.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTermRepo) Create(ctx context.Context, term *models.Term) error {
	if m.terms == nil {
		m.terms = make(map[string]models.Term)
	}
	if term.ID == "" {
		term.ID = "new-term"
	}
	m.terms[term.ID] = *term
	return nil
}

func (m *mockTermRepo) Update(ctx context.Context, term *models.Term) error {
	m.terms[term.ID] = *term
	return nil
}

func (m *mockTermRepo) Delete(ctx context.Context, id string) error {
	delete(m.terms, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTermRepo) CountSections(ctx context.Context, id string) (int, error) {
	return m.sectionCount[id], nil
}

func validTermRequest() CreateTermRequest {
	base := time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC)
	return CreateTermRequest{
		Name:              "Spring 2027",
		StartDate:         base,
		EndDate:           base.AddDate(0, 4, 0),
		RegistrationStart: base.AddDate(0, -1, 0),
		RegistrationEnd:   base,
	}
}

func TestTermServiceCreate(t *testing.T) {
	repo := &mockTermRepo{}
	svc := NewTermService(repo, validator.New(), zap.NewNop())

	term, err := svc.Create(context.Background(), validTermRequest())
	require.NoError(t, err)
	assert.Equal(t, "Spring 2027", term.Name)
	assert.Len(t, repo.terms, 1)
}

func TestTermServiceCreateDuplicateName(t *testing.T) {
	repo := &mockTermRepo{terms: map[string]models.Term{"t1": {ID: "t1", Name: "Spring 2027"}}}
	svc := NewTermService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), validTermRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestTermServiceCreateDateInvariants(t *testing.T) {
	svc := NewTermService(&mockTermRepo{}, validator.New(), zap.NewNop())

	t.Run("end before start", func(t *testing.T) {
		req := validTermRequest()
		req.EndDate = req.StartDate.AddDate(0, -1, 0)
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	})

	t.Run("registration window inverted", func(t *testing.T) {
		req := validTermRequest()
		req.RegistrationEnd = req.RegistrationStart.AddDate(0, -1, 0)
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
	})

	t.Run("registration closing after term start", func(t *testing.T) {
		req := validTermRequest()
		req.RegistrationEnd = req.StartDate.AddDate(0, 0, 5)
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
	})
}

func TestTermServiceUpdateNotFound(t *testing.T) {
	svc := NewTermService(&mockTermRepo{}, validator.New(), zap.NewNop())

	req := validTermRequest()
	_, err := svc.Update(context.Background(), "missing", UpdateTermRequest(req))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestTermServiceDeleteBlockedBySections(t *testing.T) {
	repo := &mockTermRepo{
		terms:        map[string]models.Term{"t1": {ID: "t1", Name: "Fall 2026"}},
		sectionCount: map[string]int{"t1": 3},
	}
	svc := NewTermService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotAcceptable.Status, appErrors.FromError(err).Status)
	assert.Empty(t, repo.deleted)
}

func TestTermServiceDelete(t *testing.T) {
	repo := &mockTermRepo{terms: map[string]models.Term{"t1": {ID: "t1", Name: "Fall 2026"}}}
	svc := NewTermService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "t1"))
	assert.Contains(t, repo.deleted, "t1")
}
