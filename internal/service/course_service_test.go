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

	"github.com/noah-isme/dts-adp-api/internal/models"
)

type mockCourseRepo struct {
	courses  map[string]models.CourseInstance
	programs map[string]models.Program
	vehicles map[string][]models.CourseVehicle
	deleted  []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	details := make([]models.CourseDetail, 0, len(m.courses))
	for _, c := range m.courses {
		details = append(details, models.CourseDetail{CourseInstance: c})
	}
	return details, len(details), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.CourseInstance, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if c, ok := m.courses[id]; ok {
		return &models.CourseDetail{CourseInstance: c}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.CourseInstance) error {
	if m.courses == nil {
		m.courses = make(map[string]models.CourseInstance)
	}
	if course.ID == "" {
		course.ID = "generated"
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.CourseInstance) error {
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepo) FindProgramByID(ctx context.Context, id string) (*models.Program, error) {
	if p, ok := m.programs[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ListVehicles(ctx context.Context, courseID string) ([]models.CourseVehicle, error) {
	return m.vehicles[courseID], nil
}

func courseServiceFixture() (*CourseService, *mockCourseRepo) {
	repo := &mockCourseRepo{
		programs: map[string]models.Program{"prog-1": {ID: "prog-1", Name: "Defensive L2", MaxStudents: 20}},
	}
	return NewCourseService(repo, validator.New(), zap.NewNop()), repo
}

func TestCourseServiceCreateOpenEnrollment(t *testing.T) {
	svc, repo := courseServiceFixture()

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		ProgramID:        "prog-1",
		Venue:            "Track A",
		StartDate:        time.Now(),
		EndDate:          time.Now().Add(48 * time.Hour),
		IsOpenEnrollment: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusScheduled, course.Status)
	assert.Len(t, repo.courses, 1)
}

func TestCourseServiceCreatePrivateRequiresHost(t *testing.T) {
	svc, _ := courseServiceFixture()

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		ProgramID: "prog-1",
		Venue:     "Track A",
		StartDate: time.Now(),
		EndDate:   time.Now().Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host client")
}

func TestCourseServiceCreatePrivateSeatsCapped(t *testing.T) {
	svc, _ := courseServiceFixture()
	host := "client-1"

	_, err := svc.Create(context.Background(), CreateCourseRequest{
		ProgramID:             "prog-1",
		HostClientID:          &host,
		Venue:                 "Track A",
		StartDate:             time.Now(),
		EndDate:               time.Now().Add(24 * time.Hour),
		PrivateSeatsAllocated: 25,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capacity")
}

func TestCourseServiceUpdateClosedStaysClosed(t *testing.T) {
	svc, repo := courseServiceFixture()
	repo.courses = map[string]models.CourseInstance{"c1": {ID: "c1", ProgramID: "prog-1", Status: models.CourseStatusClosed}}

	_, err := svc.Update(context.Background(), "c1", UpdateCourseRequest{
		Venue:     "Track B",
		StartDate: time.Now(),
		EndDate:   time.Now().Add(24 * time.Hour),
		Status:    models.CourseStatusRunning,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reopened")
}

func TestCourseServiceDeleteOnlyScheduled(t *testing.T) {
	svc, repo := courseServiceFixture()
	repo.courses = map[string]models.CourseInstance{
		"c1": {ID: "c1", Status: models.CourseStatusScheduled},
		"c2": {ID: "c2", Status: models.CourseStatusRunning},
	}

	require.NoError(t, svc.Delete(context.Background(), "c1"))
	assert.Contains(t, repo.deleted, "c1")

	err := svc.Delete(context.Background(), "c2")
	require.Error(t, err)
}
