package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dts-adp-api/internal/models"
	appErrors "github.com/noah-isme/dts-adp-api/pkg/errors"
)

func openCourse(maxStudents int) models.CourseDetail {
	return models.CourseDetail{
		CourseInstance: models.CourseInstance{ID: "course-1", IsOpenEnrollment: true},
		MaxStudents:    maxStudents,
	}
}

func privateCourse(seats int) models.CourseDetail {
	return models.CourseDetail{
		CourseInstance: models.CourseInstance{ID: "course-1", IsOpenEnrollment: false, PrivateSeatsAllocated: seats},
		MaxStudents:    seats,
	}
}

func TestAllocationSheetPrivateCourseRejectsAdds(t *testing.T) {
	sheet := NewAllocationSheet(privateCourse(12), nil)

	err := sheet.AddAllocation("client-x", 5)

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAllocation.Code, appErr.Code)
	assert.Equal(t, "cannot allocate seats for a private course", appErr.Message)
	assert.Empty(t, sheet.Allocations())
}

func TestAllocationSheetPrivateCourseTotals(t *testing.T) {
	sheet := NewAllocationSheet(privateCourse(12), nil)

	assert.Equal(t, 0, sheet.RemainingSeats())
	totals := sheet.Totals()
	assert.Equal(t, 12, totals.TotalAllocated)
	assert.Equal(t, 12, totals.MaxStudents)
	assert.Equal(t, 100.0, totals.AllocationPercentage)
}

func TestAllocationSheetCapacityEnforcement(t *testing.T) {
	existing := []models.SeatAllocation{
		{CourseID: "course-1", ClientID: "client-a", SeatsAllocated: 10},
		{CourseID: "course-1", ClientID: "client-b", SeatsAllocated: 8},
	}
	sheet := NewAllocationSheet(openCourse(20), existing)

	err := sheet.AddAllocation("client-y", 5)
	require.Error(t, err)
	assert.Equal(t, "cannot allocate more than the remaining 2 seats", appErrors.FromError(err).Message)
	assert.Len(t, sheet.Allocations(), 2)

	require.NoError(t, sheet.AddAllocation("client-y", 2))
	assert.Equal(t, 0, sheet.RemainingSeats())
}

func TestAllocationSheetAddsToExistingClient(t *testing.T) {
	sheet := NewAllocationSheet(openCourse(20), []models.SeatAllocation{
		{CourseID: "course-1", ClientID: "client-a", SeatsAllocated: 5},
	})

	require.NoError(t, sheet.AddAllocation("client-a", 3))

	allocations := sheet.Allocations()
	require.Len(t, allocations, 1)
	assert.Equal(t, 8, allocations[0].SeatsAllocated)
}

func TestAllocationSheetRemove(t *testing.T) {
	sheet := NewAllocationSheet(openCourse(20), []models.SeatAllocation{
		{ClientID: "client-a", SeatsAllocated: 5},
		{ClientID: "client-b", SeatsAllocated: 4},
	})

	sheet.RemoveAllocation(0)

	allocations := sheet.Allocations()
	require.Len(t, allocations, 1)
	assert.Equal(t, "client-b", allocations[0].ClientID)
	assert.Equal(t, 16, sheet.RemainingSeats())

	// out of range is ignored
	sheet.RemoveAllocation(7)
	assert.Len(t, sheet.Allocations(), 1)
}

func TestAllocationSheetRemoveNoopForPrivate(t *testing.T) {
	sheet := NewAllocationSheet(privateCourse(10), []models.SeatAllocation{
		{ClientID: "host", SeatsAllocated: 10},
	})

	sheet.RemoveAllocation(0)

	assert.Len(t, sheet.Allocations(), 1)
}

func TestAllocationSheetTotalsZeroMaxStudents(t *testing.T) {
	sheet := NewAllocationSheet(openCourse(0), nil)

	totals := sheet.Totals()
	assert.Zero(t, totals.AllocationPercentage)
}

type mockAllocationRepo struct {
	stored     []models.SeatAllocationDetail
	replaceErr error
	replaced   [][]models.SeatAllocation
}

func (m *mockAllocationRepo) ListByCourse(ctx context.Context, courseID string) ([]models.SeatAllocationDetail, error) {
	return m.stored, nil
}

func (m *mockAllocationRepo) ReplaceAll(ctx context.Context, courseID string, allocations []models.SeatAllocation) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced = append(m.replaced, allocations)
	details := make([]models.SeatAllocationDetail, len(allocations))
	for i, a := range allocations {
		details[i] = models.SeatAllocationDetail{SeatAllocation: a}
	}
	m.stored = details
	return nil
}

type mockCourseReader struct {
	course *models.CourseDetail
}

func (m *mockCourseReader) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	return m.course, nil
}

func TestAllocationServiceAddPersistsFullList(t *testing.T) {
	course := openCourse(20)
	repo := &mockAllocationRepo{stored: []models.SeatAllocationDetail{
		{SeatAllocation: models.SeatAllocation{CourseID: "course-1", ClientID: "client-a", SeatsAllocated: 10}},
	}}
	svc := NewAllocationService(repo, &mockCourseReader{course: &course}, nil, nil)

	state, err := svc.Add(context.Background(), "course-1", AddAllocationRequest{ClientID: "client-b", Seats: 4})

	require.NoError(t, err)
	require.Len(t, repo.replaced, 1)
	assert.Len(t, repo.replaced[0], 2)
	assert.Equal(t, 6, state.RemainingSeats)
	assert.Equal(t, 14, state.Totals.TotalAllocated)
}

func TestAllocationServiceAddValidation(t *testing.T) {
	course := openCourse(20)
	svc := NewAllocationService(&mockAllocationRepo{}, &mockCourseReader{course: &course}, nil, nil)

	_, err := svc.Add(context.Background(), "course-1", AddAllocationRequest{ClientID: "", Seats: 0})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAllocationServicePersistFailureKeepsStore(t *testing.T) {
	course := openCourse(20)
	repo := &mockAllocationRepo{replaceErr: assert.AnError}
	svc := NewAllocationService(repo, &mockCourseReader{course: &course}, nil, nil)

	_, err := svc.Add(context.Background(), "course-1", AddAllocationRequest{ClientID: "client-a", Seats: 2})

	require.Error(t, err)
	assert.Empty(t, repo.replaced)
	assert.Empty(t, repo.stored)
}

func TestAllocationServiceReplaceValidatesWholeList(t *testing.T) {
	course := openCourse(10)
	repo := &mockAllocationRepo{}
	svc := NewAllocationService(repo, &mockCourseReader{course: &course}, nil, nil)

	_, err := svc.Replace(context.Background(), "course-1", ReplaceAllocationsRequest{Allocations: []AddAllocationRequest{
		{ClientID: "client-a", Seats: 8},
		{ClientID: "client-b", Seats: 5},
	}})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAllocation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.replaced)
}
