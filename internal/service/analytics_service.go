package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dts-adp-api/internal/models"
	appErrors "github.com/noah-isme/dts-adp-api/pkg/errors"
)

// closureReader describes the persistence layer required to load a course's
// closure record.
type closureReader interface {
	FindByCourse(ctx context.Context, courseID string) (*models.CourseClosure, error)
}

// analyticsCourseReader loads course context for the analytics envelope.
type analyticsCourseReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

// AnalyticsService computes per-student performance analytics for closed
// course instances, with cache integration. The raw closure payload is never
// rewritten; every read recomputes scores from it.
type AnalyticsService struct {
	closures      closureReader
	courses       analyticsCourseReader
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
	controlWeight float64
	cacheTTL      time.Duration
}

// NewAnalyticsService constructs an analytics service. controlWeight outside
// (0,1) falls back to the default blend.
func NewAnalyticsService(closures closureReader, courses analyticsCourseReader, cache *CacheService, metrics *MetricsService, controlWeight float64, cacheTTL time.Duration, logger *zap.Logger) *AnalyticsService {
	if controlWeight <= 0 || controlWeight >= 1 {
		controlWeight = DefaultControlWeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		closures:      closures,
		courses:       courses,
		cache:         cache,
		metrics:       metrics,
		logger:        logger,
		controlWeight: controlWeight,
		cacheTTL:      cacheTTL,
	}
}

// CourseAnalytics returns the scored analytics view for a course instance.
// The boolean indicates whether data originated from cache.
func (s *AnalyticsService) CourseAnalytics(ctx context.Context, courseID string) (*models.CourseAnalytics, bool, error) {
	cacheKey := makeAnalyticsCacheKey("course", courseID)
	if s.cache != nil {
		var cached models.CourseAnalytics
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get analytics cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	analytics, err := s.compute(ctx, courseID)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, analytics, s.cacheTTL); err != nil {
			s.logger.Warn("cache course analytics", zap.String("course_id", courseID), zap.Error(err))
		}
	}
	return analytics, false, nil
}

// TopPerformers returns the course leaderboard, ordered by control percentage
// descending with ties broken by fewer attempts until pass.
func (s *AnalyticsService) TopPerformers(ctx context.Context, courseID string, limit int) ([]models.TopPerformer, error) {
	analytics, _, err := s.CourseAnalytics(ctx, courseID)
	if err != nil {
		return nil, err
	}

	records := make([]models.StudentPerformanceRecord, 0, len(analytics.Students))
	for _, st := range analytics.Students {
		records = append(records, st.Record)
	}

	ranked := RankTopPerformers(records, limit)
	performers := make([]models.TopPerformer, 0, len(ranked))
	for i, r := range ranked {
		performers = append(performers, models.TopPerformer{
			Rank:              i + 1,
			FullName:          r.FullName,
			ControlPct:        rankControl(r),
			AttemptsUntilPass: rankAttempts(r),
			OverallScore:      r.OverallScore,
		})
	}
	return performers, nil
}

// Invalidate drops cached analytics for a course, typically after re-closing.
func (s *AnalyticsService) Invalidate(ctx context.Context, courseID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, makeAnalyticsCacheKey("course", courseID)+"*")
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) compute(ctx context.Context, courseID string) (*models.CourseAnalytics, error) {
	start := time.Now()
	course, err := s.courses.FindDetailByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, fmt.Errorf("load course: %w", err)
	}

	closure, err := s.closures.FindByCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course has no closure record")
		}
		return nil, fmt.Errorf("load closure: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_closure", time.Since(start))
	}

	var raws []models.RawStudentPerformance
	if len(closure.AnalyticsData) > 0 {
		if err := json.Unmarshal(closure.AnalyticsData, &raws); err != nil {
			return nil, fmt.Errorf("decode analytics payload: %w", err)
		}
	}

	students := make([]models.StudentAnalytics, 0, len(raws))
	for _, raw := range raws {
		record := BuildPerformanceRecord(raw, s.controlWeight)
		students = append(students, models.StudentAnalytics{
			Record:        record,
			FinalExercise: AggregateFinalExercise(record.FinalAttempts),
		})
	}

	return &models.CourseAnalytics{
		CourseID:    course.ID,
		ProgramName: course.ProgramName,
		ClosedAt:    closure.ClosedAt,
		Students:    students,
		ComputedAt:  time.Now().UTC(),
	}, nil
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}
