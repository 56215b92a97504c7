package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/dts-adp-api/internal/models"
	appErrors "github.com/noah-isme/dts-adp-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CourseInstance, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	Create(ctx context.Context, course *models.CourseInstance) error
	Update(ctx context.Context, course *models.CourseInstance) error
	Delete(ctx context.Context, id string) error
	FindProgramByID(ctx context.Context, id string) (*models.Program, error)
	ListVehicles(ctx context.Context, courseID string) ([]models.CourseVehicle, error)
}

// CreateCourseRequest holds payload for scheduling a course instance.
type CreateCourseRequest struct {
	ProgramID             string    `json:"program_id" validate:"required"`
	HostClientID          *string   `json:"host_client_id"`
	Venue                 string    `json:"venue" validate:"required"`
	StartDate             time.Time `json:"start_date" validate:"required"`
	EndDate               time.Time `json:"end_date" validate:"required"`
	IsOpenEnrollment      bool      `json:"is_open_enrollment"`
	PrivateSeatsAllocated int       `json:"private_seats_allocated" validate:"gte=0"`
}

// UpdateCourseRequest holds payload for rescheduling or changing a course instance.
type UpdateCourseRequest struct {
	HostClientID          *string             `json:"host_client_id"`
	Venue                 string              `json:"venue" validate:"required"`
	StartDate             time.Time           `json:"start_date" validate:"required"`
	EndDate               time.Time           `json:"end_date" validate:"required"`
	IsOpenEnrollment      bool                `json:"is_open_enrollment"`
	PrivateSeatsAllocated int                 `json:"private_seats_allocated" validate:"gte=0"`
	Status                models.CourseStatus `json:"status" validate:"required,oneof=SCHEDULED RUNNING CLOSED"`
}

// CourseService handles course instance use-cases.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns course instances and pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return courses, pagination, nil
}

// Get returns detailed course information including fielded vehicles.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, []models.CourseVehicle, error) {
	course, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	vehicles, err := s.repo.ListVehicles(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course vehicles")
	}
	return course, vehicles, nil
}

// Create schedules a new course instance. A private course must name its host
// client; an open-enrollment course must not pre-allocate private seats.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.CourseInstance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !req.IsOpenEnrollment && (req.HostClientID == nil || *req.HostClientID == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a private course requires a host client")
	}
	if req.IsOpenEnrollment && req.PrivateSeatsAllocated > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "an open-enrollment course cannot pre-allocate private seats")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	program, err := s.repo.FindProgramByID(ctx, req.ProgramID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if !req.IsOpenEnrollment && req.PrivateSeatsAllocated > program.MaxStudents {
		return nil, appErrors.Clone(appErrors.ErrValidation, "private seats exceed program capacity")
	}

	course := &models.CourseInstance{
		ProgramID:             req.ProgramID,
		HostClientID:          req.HostClientID,
		Venue:                 req.Venue,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		IsOpenEnrollment:      req.IsOpenEnrollment,
		PrivateSeatsAllocated: req.PrivateSeatsAllocated,
		Status:                models.CourseStatusScheduled,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update modifies an existing course instance.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.CourseInstance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status == models.CourseStatusClosed && req.Status != models.CourseStatusClosed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a closed course cannot be reopened")
	}
	course.HostClientID = req.HostClientID
	course.Venue = req.Venue
	course.StartDate = req.StartDate
	course.EndDate = req.EndDate
	course.IsOpenEnrollment = req.IsOpenEnrollment
	course.PrivateSeatsAllocated = req.PrivateSeatsAllocated
	course.Status = req.Status
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a scheduled course instance. Courses that already ran keep
// their records; only SCHEDULED instances may be deleted.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusScheduled {
		return appErrors.Clone(appErrors.ErrValidation, "only scheduled courses can be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}
