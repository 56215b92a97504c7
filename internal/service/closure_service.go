package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/dts-adp-api/internal/models"
	"github.com/noah-isme/dts-adp-api/internal/transform"
	appErrors "github.com/noah-isme/dts-adp-api/pkg/errors"
)

type closureStore interface {
	Create(ctx context.Context, closure *models.CourseClosure) error
}

type closureCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseInstance, error)
	Update(ctx context.Context, course *models.CourseInstance) error
	FindProgramByID(ctx context.Context, id string) (*models.Program, error)
}

type analyticsInvalidator interface {
	Invalidate(ctx context.Context, courseID string) error
}

// CloseCourseRequest carries the closure record submitted when a course ends.
// Layout parameters default to the program's values when omitted.
type CloseCourseRequest struct {
	ChordLength   float64         `json:"chord_length" validate:"gte=0"`
	MaxOffset     float64         `json:"max_offset" validate:"gte=0"`
	IdealTime     float64         `json:"ideal_time" validate:"gte=0"`
	PenaltyCone   float64         `json:"penalty_cone" validate:"gte=0"`
	PenaltyGate   float64         `json:"penalty_gate" validate:"gte=0"`
	AnalyticsData json.RawMessage `json:"analytics_data" validate:"required"`
}

// ClosureService records course closures and keeps derived analytics fresh.
type ClosureService struct {
	closures  closureStore
	courses   closureCourseStore
	analytics analyticsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClosureService constructs a ClosureService.
func NewClosureService(closures closureStore, courses closureCourseStore, analytics analyticsInvalidator, validate *validator.Validate, logger *zap.Logger) *ClosureService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClosureService{
		closures:  closures,
		courses:   courses,
		analytics: analytics,
		validator: validate,
		logger:    logger,
	}
}

// Close records the closure for a course, marks it CLOSED and drops any
// cached analytics so the next read recomputes from the new payload.
// The raw payload is stored as recorded; re-closing a course replaces the
// previous record.
func (s *ClosureService) Close(ctx context.Context, courseID string, req CloseCourseRequest, actorID string) (*models.CourseClosure, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid closure payload")
	}

	var decoded []interface{}
	if err := json.Unmarshal(req.AnalyticsData, &decoded); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "analytics_data must be an array of performance records")
	}

	// Field clients submit either key convention; storage is canonical snake_case.
	payload, err := json.Marshal(transform.ToSnake(decoded))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to canonicalize analytics payload")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status == models.CourseStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a course cannot be closed before it runs")
	}

	closure := &models.CourseClosure{
		CourseID:      courseID,
		ClosedBy:      actorID,
		ClosedAt:      time.Now().UTC(),
		ChordLength:   req.ChordLength,
		MaxOffset:     req.MaxOffset,
		IdealTime:     req.IdealTime,
		PenaltyCone:   req.PenaltyCone,
		PenaltyGate:   req.PenaltyGate,
		AnalyticsData: payload,
	}
	s.applyProgramDefaults(ctx, course.ProgramID, closure)

	if err := s.closures.Create(ctx, closure); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record course closure")
	}

	if course.Status != models.CourseStatusClosed {
		course.Status = models.CourseStatusClosed
		if err := s.courses.Update(ctx, course); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course status")
		}
	}

	if s.analytics != nil {
		if err := s.analytics.Invalidate(ctx, courseID); err != nil {
			s.logger.Warn("failed to invalidate course analytics cache",
				zap.String("course_id", courseID), zap.Error(err))
		}
	}

	s.logger.Info("course closed",
		zap.String("course_id", courseID),
		zap.String("closed_by", actorID),
		zap.Int("students", len(decoded)))

	return closure, nil
}

func (s *ClosureService) applyProgramDefaults(ctx context.Context, programID string, closure *models.CourseClosure) {
	if closure.ChordLength > 0 && closure.IdealTime > 0 {
		return
	}
	program, err := s.courses.FindProgramByID(ctx, programID)
	if err != nil {
		s.logger.Warn("failed to load program for closure defaults", zap.String("program_id", programID), zap.Error(err))
		return
	}
	if closure.ChordLength <= 0 {
		closure.ChordLength = program.ChordLength
	}
	if closure.MaxOffset <= 0 {
		closure.MaxOffset = program.MaxOffset
	}
	if closure.IdealTime <= 0 {
		closure.IdealTime = program.IdealTime
	}
	if closure.PenaltyCone <= 0 {
		closure.PenaltyCone = program.PenaltyCone
	}
	if closure.PenaltyGate <= 0 {
		closure.PenaltyGate = program.PenaltyGate
	}
}
