package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/dts-adp-api/internal/models"
	appErrors "github.com/noah-isme/dts-adp-api/pkg/errors"
)

type allocationRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.SeatAllocationDetail, error)
	ReplaceAll(ctx context.Context, courseID string, allocations []models.SeatAllocation) error
}

type courseReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

// AllocationSheet is the in-memory seat accountant for one course instance.
// Single-writer by design: one admin edits one course's allocations at a
// time, and the list is persisted by full replacement.
type AllocationSheet struct {
	course      models.CourseDetail
	allocations []models.SeatAllocation
}

// NewAllocationSheet builds a sheet over the current allocation list.
func NewAllocationSheet(course models.CourseDetail, allocations []models.SeatAllocation) *AllocationSheet {
	return &AllocationSheet{
		course:      course,
		allocations: append([]models.SeatAllocation(nil), allocations...),
	}
}

// RemainingSeats reports how many seats can still be handed out. A private
// course has its whole block pre-assigned to the host client, so nothing
// remains; an open-enrollment course offers max_students minus the sum of
// existing allocations.
func (s *AllocationSheet) RemainingSeats() int {
	if !s.course.IsOpenEnrollment {
		return 0
	}
	return s.course.MaxStudents - s.totalAllocated()
}

// AddAllocation grants seats to a client. A client that already holds an
// allocation has the new seats added to it rather than replaced. Violations
// return an ALLOCATION_ERROR and leave the list unchanged.
func (s *AllocationSheet) AddAllocation(clientID string, seats int) error {
	if !s.course.IsOpenEnrollment {
		return appErrors.Clone(appErrors.ErrAllocation, "cannot allocate seats for a private course")
	}
	if remaining := s.RemainingSeats(); seats > remaining {
		return appErrors.Clone(appErrors.ErrAllocation, fmt.Sprintf("cannot allocate more than the remaining %d seats", remaining))
	}
	for i := range s.allocations {
		if s.allocations[i].ClientID == clientID {
			s.allocations[i].SeatsAllocated += seats
			return nil
		}
	}
	s.allocations = append(s.allocations, models.SeatAllocation{
		CourseID:       s.course.ID,
		ClientID:       clientID,
		SeatsAllocated: seats,
	})
	return nil
}

// RemoveAllocation deletes the allocation at the given position. Private
// courses and out-of-range positions are silently ignored.
func (s *AllocationSheet) RemoveAllocation(index int) {
	if !s.course.IsOpenEnrollment {
		return
	}
	if index < 0 || index >= len(s.allocations) {
		return
	}
	s.allocations = append(s.allocations[:index], s.allocations[index+1:]...)
}

// Totals summarises utilisation. A private course reports its pre-assigned
// block as fully utilised; an open course reports the allocated sum against
// the program maximum, guarding the zero-max division.
func (s *AllocationSheet) Totals() models.AllocationTotals {
	if !s.course.IsOpenEnrollment {
		p := s.course.PrivateSeatsAllocated
		return models.AllocationTotals{TotalAllocated: p, MaxStudents: p, AllocationPercentage: 100}
	}
	total := s.totalAllocated()
	totals := models.AllocationTotals{TotalAllocated: total, MaxStudents: s.course.MaxStudents}
	if s.course.MaxStudents > 0 {
		totals.AllocationPercentage = 100 * float64(total) / float64(s.course.MaxStudents)
	}
	return totals
}

// Allocations returns a copy of the current in-memory list.
func (s *AllocationSheet) Allocations() []models.SeatAllocation {
	return append([]models.SeatAllocation(nil), s.allocations...)
}

func (s *AllocationSheet) totalAllocated() int {
	total := 0
	for _, a := range s.allocations {
		total += a.SeatsAllocated
	}
	return total
}

// AddAllocationRequest grants seats to a client on a course.
type AddAllocationRequest struct {
	ClientID string `json:"client_id" validate:"required"`
	Seats    int    `json:"seats" validate:"required,gt=0"`
}

// ReplaceAllocationsRequest carries the full allocation list for a save.
type ReplaceAllocationsRequest struct {
	Allocations []AddAllocationRequest `json:"allocations" validate:"dive"`
}

// AllocationState is the sheet snapshot returned after each operation.
type AllocationState struct {
	Allocations    []models.SeatAllocationDetail `json:"allocations"`
	RemainingSeats int                           `json:"remaining_seats"`
	Totals         models.AllocationTotals       `json:"totals"`
}

// AllocationService orchestrates seat accounting against the persisted list.
type AllocationService struct {
	repo      allocationRepository
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAllocationService constructs AllocationService.
func NewAllocationService(repo allocationRepository, courses courseReader, validate *validator.Validate, logger *zap.Logger) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// State returns the current allocations with totals for display.
func (s *AllocationService) State(ctx context.Context, courseID string) (*AllocationState, error) {
	sheet, details, err := s.loadSheet(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &AllocationState{
		Allocations:    details,
		RemainingSeats: sheet.RemainingSeats(),
		Totals:         sheet.Totals(),
	}, nil
}

// Add grants seats to one client and persists the updated list.
func (s *AllocationService) Add(ctx context.Context, courseID string, req AddAllocationRequest) (*AllocationState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
	}
	sheet, _, err := s.loadSheet(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := sheet.AddAllocation(req.ClientID, req.Seats); err != nil {
		return nil, err
	}
	return s.persist(ctx, courseID, sheet)
}

// Remove deletes the allocation at the given position and persists the list.
func (s *AllocationService) Remove(ctx context.Context, courseID string, index int) (*AllocationState, error) {
	sheet, _, err := s.loadSheet(ctx, courseID)
	if err != nil {
		return nil, err
	}
	sheet.RemoveAllocation(index)
	return s.persist(ctx, courseID, sheet)
}

// Replace validates a full allocation list through a fresh sheet and saves it
// wholesale. Every entry passes through the accountant so capacity rules hold
// for the list as a whole, not just for increments.
func (s *AllocationService) Replace(ctx context.Context, courseID string, req ReplaceAllocationsRequest) (*AllocationState, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocations payload")
	}
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	sheet := NewAllocationSheet(*course, nil)
	for _, item := range req.Allocations {
		if err := sheet.AddAllocation(item.ClientID, item.Seats); err != nil {
			return nil, err
		}
	}
	return s.persist(ctx, courseID, sheet)
}

func (s *AllocationService) loadSheet(ctx context.Context, courseID string) (*AllocationSheet, []models.SeatAllocationDetail, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	details, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	allocations := make([]models.SeatAllocation, len(details))
	for i, d := range details {
		allocations[i] = d.SeatAllocation
	}
	return NewAllocationSheet(*course, allocations), details, nil
}

func (s *AllocationService) findCourse(ctx context.Context, courseID string) (*models.CourseDetail, error) {
	course, err := s.courses.FindDetailByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// persist saves the sheet via the full-replace contract. A failed save leaves
// the stored list as it was; the caller retries with the same request.
func (s *AllocationService) persist(ctx context.Context, courseID string, sheet *AllocationSheet) (*AllocationState, error) {
	if err := s.repo.ReplaceAll(ctx, courseID, sheet.Allocations()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save allocations")
	}
	details, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload allocations")
	}
	return &AllocationState{
		Allocations:    details,
		RemainingSeats: sheet.RemainingSeats(),
		Totals:         sheet.Totals(),
	}, nil
}
