package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dts-adp-api/internal/models"
	appErrors "github.com/noah-isme/dts-adp-api/pkg/errors"
)

type mockClosureRepo struct {
	closure *models.CourseClosure
	err     error
	calls   int
}

func (m *mockClosureRepo) FindByCourse(_ context.Context, _ string) (*models.CourseClosure, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.closure, nil
}

type mockAnalyticsCourses struct {
	detail *models.CourseDetail
	err    error
}

func (m *mockAnalyticsCourses) FindDetailByID(_ context.Context, _ string) (*models.CourseDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.detail, nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	return nil
}

func analyticsFixture(t *testing.T) (*mockClosureRepo, *mockAnalyticsCourses) {
	t.Helper()
	payload, err := json.Marshal([]models.RawStudentPerformance{
		{
			FullName:        "Aiken",
			SlalomMax:       85,
			LaneChangeMax:   78,
			SRunsUntilPass:  2,
			LCRunsUntilPass: 4,
			FinalExerciseDetails: []models.FinalExerciseAttempt{
				{Stress: models.StressLow, FinalResult: 88, RevSlalomSeconds: 12.4, RevPC: 91},
				{Stress: models.StressHigh, FinalResult: 84, RevSlalomSeconds: 13.1, RevPC: 87},
			},
		},
		{
			FullName:       "Brant",
			SlalomControl:  92,
			EvasionControl: 88,
			SlalomAttempts: 3,
			EvasionAttempts: 3,
		},
	})
	require.NoError(t, err)

	closures := &mockClosureRepo{closure: &models.CourseClosure{
		ID:            "cl-1",
		CourseID:      "course-1",
		ClosedAt:      time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC),
		AnalyticsData: payload,
	}}
	courses := &mockAnalyticsCourses{detail: &models.CourseDetail{
		CourseInstance: models.CourseInstance{ID: "course-1"},
		ProgramName:    "Defensive Driving L2",
		MaxStudents:    20,
	}}
	return closures, courses
}

func TestAnalyticsServiceComputesAndCaches(t *testing.T) {
	closures, courses := analyticsFixture(t)
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAnalyticsService(closures, courses, cacheSvc, nil, 0.5, time.Minute, zap.NewNop())

	ctx := context.Background()
	analytics, cacheHit, err := svc.CourseAnalytics(ctx, "course-1")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, closures.calls)
	require.Len(t, analytics.Students, 2)
	assert.Equal(t, "Defensive Driving L2", analytics.ProgramName)

	// derived, never copied: overall score present even though input had none
	first := analytics.Students[0]
	assert.Equal(t, "Aiken", first.Record.FullName)
	assert.Greater(t, first.Record.OverallScore, 0.0)
	assert.Equal(t, 86, first.FinalExercise.AverageFinalResult)
	assert.InDelta(t, 88, first.FinalExercise.LowStressAverage, 1e-9)
	assert.InDelta(t, 84, first.FinalExercise.HighStressAverage, 1e-9)

	// legacy-convention record got normalized too
	second := analytics.Students[1]
	assert.InDelta(t, 92, second.Record.SlalomControl, 1e-9)
	assert.Equal(t, 3, second.Record.SlalomRunsUntilPass)

	cached, cacheHit2, err := svc.CourseAnalytics(ctx, "course-1")
	require.NoError(t, err)
	assert.True(t, cacheHit2)
	assert.Equal(t, 1, closures.calls)
	assert.Equal(t, analytics.CourseID, cached.CourseID)
	assert.Len(t, cached.Students, 2)
}

func TestAnalyticsServiceMissingClosure(t *testing.T) {
	closures := &mockClosureRepo{err: sql.ErrNoRows}
	courses := &mockAnalyticsCourses{detail: &models.CourseDetail{CourseInstance: models.CourseInstance{ID: "course-1"}}}
	svc := NewAnalyticsService(closures, courses, nil, nil, 0.5, 0, zap.NewNop())

	_, _, err := svc.CourseAnalytics(context.Background(), "course-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAnalyticsServiceTopPerformers(t *testing.T) {
	closures, courses := analyticsFixture(t)
	svc := NewAnalyticsService(closures, courses, nil, nil, 0.5, 0, zap.NewNop())

	performers, err := svc.TopPerformers(context.Background(), "course-1", 10)
	require.NoError(t, err)
	require.Len(t, performers, 2)

	// Brant has higher mean control (90 vs 81.5) so ranks first
	assert.Equal(t, 1, performers[0].Rank)
	assert.Equal(t, "Brant", performers[0].FullName)
	assert.InDelta(t, 90, performers[0].ControlPct, 1e-9)
	assert.Equal(t, "Aiken", performers[1].FullName)

	top1, err := svc.TopPerformers(context.Background(), "course-1", 1)
	require.NoError(t, err)
	require.Len(t, top1, 1)
	assert.Equal(t, "Brant", top1[0].FullName)
}

func TestAnalyticsServiceEmptyPayload(t *testing.T) {
	closures := &mockClosureRepo{closure: &models.CourseClosure{CourseID: "course-1", AnalyticsData: json.RawMessage(`[]`)}}
	courses := &mockAnalyticsCourses{detail: &models.CourseDetail{CourseInstance: models.CourseInstance{ID: "course-1"}}}
	svc := NewAnalyticsService(closures, courses, nil, nil, 0.5, 0, zap.NewNop())

	analytics, _, err := svc.CourseAnalytics(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Empty(t, analytics.Students)
}
