package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dts-adp-api/internal/models"
	"github.com/noah-isme/dts-adp-api/internal/service"
)

type allocationRepoStub struct {
	stored []models.SeatAllocationDetail
}

func (s *allocationRepoStub) ListByCourse(_ context.Context, _ string) ([]models.SeatAllocationDetail, error) {
	return append([]models.SeatAllocationDetail(nil), s.stored...), nil
}

func (s *allocationRepoStub) ReplaceAll(_ context.Context, courseID string, allocations []models.SeatAllocation) error {
	s.stored = s.stored[:0]
	for _, a := range allocations {
		a.CourseID = courseID
		s.stored = append(s.stored, models.SeatAllocationDetail{SeatAllocation: a})
	}
	return nil
}

type allocationCourseStub struct {
	course models.CourseDetail
}

func (s allocationCourseStub) FindDetailByID(_ context.Context, _ string) (*models.CourseDetail, error) {
	course := s.course
	return &course, nil
}

func newAllocationHandlerForTest(open bool, maxStudents int) (*AllocationHandler, *allocationRepoStub) {
	repo := &allocationRepoStub{}
	courses := allocationCourseStub{course: models.CourseDetail{
		CourseInstance: models.CourseInstance{ID: "course-1", IsOpenEnrollment: open, PrivateSeatsAllocated: 12},
		MaxStudents:    maxStudents,
	}}
	svc := service.NewAllocationService(repo, courses, nil, zap.NewNop())
	return NewAllocationHandler(svc), repo
}

func TestAllocationHandlerState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAllocationHandlerForTest(true, 20)

	c, w := newGinContext(http.MethodGet, "/courses/course-1/allocations", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}

	handler.State(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data service.AllocationState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 20, envelope.Data.RemainingSeats)
}

func TestAllocationHandlerAdd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newAllocationHandlerForTest(true, 20)

	payload, _ := json.Marshal(service.AddAllocationRequest{ClientID: "client-1", Seats: 5})
	c, w := newGinContext(http.MethodPost, "/courses/course-1/allocations", payload)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}

	handler.Add(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.stored, 1)
	assert.Equal(t, 5, repo.stored[0].SeatsAllocated)
}

func TestAllocationHandlerAddPrivateCourseRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newAllocationHandlerForTest(false, 20)

	payload, _ := json.Marshal(service.AddAllocationRequest{ClientID: "client-1", Seats: 5})
	c, w := newGinContext(http.MethodPost, "/courses/course-1/allocations", payload)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}

	handler.Add(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "private course")
	assert.Empty(t, repo.stored)
}

func TestAllocationHandlerAddValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAllocationHandlerForTest(true, 20)

	payload, _ := json.Marshal(service.AddAllocationRequest{ClientID: "", Seats: 0})
	c, w := newGinContext(http.MethodPost, "/courses/course-1/allocations", payload)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}

	handler.Add(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllocationHandlerRemoveBadIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAllocationHandlerForTest(true, 20)

	c, w := newGinContext(http.MethodDelete, "/courses/course-1/allocations/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}, {Key: "index", Value: "x"}}

	handler.Remove(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllocationHandlerReplace(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newAllocationHandlerForTest(true, 20)

	payload, _ := json.Marshal(service.ReplaceAllocationsRequest{Allocations: []service.AddAllocationRequest{
		{ClientID: "client-1", Seats: 8},
		{ClientID: "client-2", Seats: 12},
	}})
	c, w := newGinContext(http.MethodPut, "/courses/course-1/allocations", payload)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}

	handler.Replace(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.stored, 2)
}
